package identity

import (
	"strings"

	"github.com/tartampluch/go-rota/internal/config"
)

// Groups is a directory split into team sections.
type Groups struct {
	Back  []Record
	Front []Record
	Cash  []Record
}

// Len counts every record across sections.
func (g Groups) Len() int {
	return len(g.Back) + len(g.Front) + len(g.Cash)
}

// SplitGroups segments records into sections. Each section spans, inclusively,
// the first record matching its start label to the first record matching its
// end label, in directory order. A section whose labels are not both found is
// empty. Records that fall in no section are appended to Back.
func SplitGroups(records []Record, labels config.GroupLabels) Groups {
	bounds := []string{labels.BackStart, labels.BackEnd, labels.FrontStart, labels.FrontEnd, labels.CashStart, labels.CashEnd}

	labelVariants := make([]map[string]bool, len(bounds))
	for i, l := range bounds {
		labelVariants[i] = variantSet(l)
	}

	idx := []int{-1, -1, -1, -1, -1, -1}
	for i, rec := range records {
		ev := BuildAliasVariants(rec.Name)
		for b := range bounds {
			if idx[b] >= 0 || len(labelVariants[b]) == 0 {
				continue
			}
			for _, v := range ev {
				if labelVariants[b][v] {
					idx[b] = i
					break
				}
			}
		}
	}

	placed := make([]bool, len(records))
	segment := func(a, b int) []Record {
		if a < 0 || b < 0 {
			return nil
		}
		lo, hi := min(a, b), max(a, b)
		for i := lo; i <= hi; i++ {
			placed[i] = true
		}
		return append([]Record(nil), records[lo:hi+1]...)
	}

	g := Groups{
		Back:  segment(idx[0], idx[1]),
		Front: segment(idx[2], idx[3]),
		Cash:  segment(idx[4], idx[5]),
	}
	for i, rec := range records {
		if !placed[i] {
			g.Back = append(g.Back, rec)
		}
	}
	return g
}

func variantSet(label string) map[string]bool {
	if strings.TrimSpace(label) == "" {
		return nil
	}
	set := map[string]bool{strings.ToUpper(strings.TrimSpace(label)): true}
	for _, v := range BuildAliasVariants(label) {
		set[v] = true
	}
	return set
}
