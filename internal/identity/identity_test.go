package identity_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/identity"
	"github.com/tartampluch/go-rota/internal/schedule"
)

// MockDirectory implements identity.DirectorySource.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetDirectory(ctx context.Context) (identity.Directory, error) {
	args := m.Called(ctx)
	return args.Get(0).(identity.Directory), args.Error(1)
}

// stubSchedules implements identity.ScheduleSource from a fixed map.
type stubSchedules map[string]schedule.Normalized

func (s stubSchedules) GetSchedule(_ context.Context, id string, _ int) schedule.Normalized {
	if n, ok := s[id]; ok {
		return n
	}
	return schedule.NotOK()
}

var roster = identity.Directory{OK: true, Records: []identity.Record{
	{Email: "johan@example.com", Phone: "+57 (300) 111-2233", Name: "Johan A. Giraldo", APIKey: "k-johan"},
	{Email: "Maria@Example.com", Phone: "3004445566", Name: "Maria De La Cruz"},
	{Email: "nameless@example.com", Phone: "3009990000", Name: "  J.  "},
}}

func TestDeriveAlias(t *testing.T) {
	tests := map[string]string{
		"Johan A. Giraldo":    "GIRALDO",
		"Maria De La Cruz":    "DE LA CRUZ",
		"Ana del Río":         "DEL RÍO",
		"Vincent Van Gogh":    "VAN GOGH",
		"Pedro de los Santos": "DE LOS SANTOS",
		"  sofía   núñez ":    "NÚÑEZ",
		"Jean-Luc O'Neil":     "ONEIL",
		"Cher":                "CHER",
		"A. B.":               "",
		"":                    "",
	}
	for in, want := range tests {
		assert.Equal(t, want, identity.DeriveAlias(in), "DeriveAlias(%q)", in)
	}
}

func TestBuildAliasVariants(t *testing.T) {
	got := identity.BuildAliasVariants("Johan Giraldo")

	for _, want := range []string{"GIRALDO", "J. GIRALDO", "J.GIRALDO", "J GIRALDO", "JOHAN GIRALDO"} {
		assert.Contains(t, got, want)
	}
	assert.Contains(t, got, "J\u00a0.\u00a0GIRALDO")
	assert.Contains(t, got, "J\u00a0GIRALDO")
	assert.Equal(t, "GIRALDO", got[0], "the bare surname comes first")

	seen := map[string]bool{}
	for _, v := range got {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
		assert.Equal(t, v, strings.ToUpper(v), "variant %q must be uppercase", v)
	}

	assert.Nil(t, identity.BuildAliasVariants("   "))
}

func TestBuildAliasVariants_Joiner(t *testing.T) {
	got := identity.BuildAliasVariants("Maria De La Cruz")
	assert.Equal(t, "DE LA CRUZ", got[0])
	assert.Contains(t, got, "M. DE LA CRUZ")
	assert.Contains(t, got, "MARIA DE LA CRUZ")
}

func TestNormalizeAndKey(t *testing.T) {
	assert.Equal(t, "maria@example.com", identity.NormalizeEmail("  Maria@Example.COM "))
	assert.Equal(t, "573001112233", identity.NormalizePhone("+57 (300) 111-2233"))
	assert.Equal(t, "maria@example.com", identity.Key("Maria@Example.com", "300"))
	assert.Equal(t, "300", identity.Key("", "3-0-0"))
	assert.Equal(t, "", identity.Key("", ""))
}

func TestDecodeDirectory(t *testing.T) {
	payload := map[string]any{
		"ok": true,
		"employees": []any{
			map[string]any{"email": "a@x.com", "employee": "Ana Lopez", "phone": float64(3001234567), "apikey": "k1"},
			"not an object",
			map[string]any{"email": "b@x.com", "fullname": "Bruno Diaz", "role": "cash"},
		},
	}

	d := identity.DecodeDirectory(payload)
	require.True(t, d.OK)
	require.Len(t, d.Records, 2)
	assert.Equal(t, identity.Record{Email: "a@x.com", Phone: "3001234567", Name: "Ana Lopez", APIKey: "k1"}, d.Records[0])
	assert.Equal(t, "Bruno Diaz", d.Records[1].Name)
	assert.Equal(t, "cash", d.Records[1].Role)

	assert.False(t, identity.DecodeDirectory(map[string]any{"ok": false}).OK)
	assert.False(t, identity.DecodeDirectory(map[string]any{"ok": false, "rows": []any{map[string]any{"email": "a"}}}).OK)
}

func TestResolveAlias(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetDirectory", mock.Anything).Return(roster, nil)
	r := identity.NewResolver(dir, nil)
	ctx := context.Background()

	t.Run("By email, case-insensitive", func(t *testing.T) {
		res, err := r.ResolveAlias(ctx, identity.Query{Email: "MARIA@example.com"})
		require.NoError(t, err)
		assert.Equal(t, identity.Resolution{Alias: "DE LA CRUZ", FoundBy: config.FoundByDirectory}, res)
	})

	t.Run("By phone, digits only", func(t *testing.T) {
		res, err := r.ResolveAlias(ctx, identity.Query{Phone: "57-300-111-2233"})
		require.NoError(t, err)
		assert.Equal(t, "GIRALDO", res.Alias)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := r.ResolveAlias(ctx, identity.Query{Email: "ghost@example.com"})
		assert.ErrorIs(t, err, identity.ErrAliasNotFound)
	})

	t.Run("Empty query", func(t *testing.T) {
		_, err := r.ResolveAlias(ctx, identity.Query{})
		assert.ErrorIs(t, err, identity.ErrAliasNotFound)
	})

	t.Run("Empty alias", func(t *testing.T) {
		_, err := r.ResolveAlias(ctx, identity.Query{Email: "nameless@example.com"})
		assert.ErrorIs(t, err, identity.ErrAliasEmpty)
	})
}

func TestResolveAlias_Memoized(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetDirectory", mock.Anything).Return(roster, nil).Once()
	r := identity.NewResolver(dir, nil)

	for i := 0; i < 3; i++ {
		res, err := r.ResolveAlias(context.Background(), identity.Query{Email: "johan@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "GIRALDO", res.Alias)
	}
	dir.AssertNumberOfCalls(t, "GetDirectory", 1)

	// After invalidation the directory is consulted again.
	dir.On("GetDirectory", mock.Anything).Return(roster, nil).Once()
	r.Invalidate("johan@example.com")
	_, err := r.ResolveAlias(context.Background(), identity.Query{Email: "johan@example.com"})
	require.NoError(t, err)
	dir.AssertNumberOfCalls(t, "GetDirectory", 2)
}

func TestResolveAlias_DirectoryErrorNotMemoized(t *testing.T) {
	boom := errors.New("network down")
	dir := new(MockDirectory)
	dir.On("GetDirectory", mock.Anything).Return(identity.Directory{}, boom).Once()
	dir.On("GetDirectory", mock.Anything).Return(roster, nil).Once()
	r := identity.NewResolver(dir, nil)

	_, err := r.ResolveAlias(context.Background(), identity.Query{Email: "johan@example.com"})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), config.ErrDirectoryFetch)

	res, err := r.ResolveAlias(context.Background(), identity.Query{Email: "johan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "GIRALDO", res.Alias)
}

func TestResolveContactFields(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetDirectory", mock.Anything).Return(roster, nil)

	weekRow := schedule.Normalized{OK: true, Raw: map[string]any{"rowPhone": " 3107778899 ", "rowApiKey": "k-week"}}
	r := identity.NewResolver(dir, stubSchedules{"johan@example.com": weekRow})
	ctx := context.Background()

	phone, ok := r.ResolvePhone(ctx, "johan@example.com")
	require.True(t, ok)
	assert.Equal(t, "3107778899", phone, "the schedule row wins over the directory")

	key, ok := r.ResolveAPIKey(ctx, "johan@example.com")
	require.True(t, ok)
	assert.Equal(t, "k-week", key)

	phone, ok = r.ResolvePhone(ctx, "maria@example.com")
	require.True(t, ok)
	assert.Equal(t, "3004445566", phone, "falls back to the directory")

	_, ok = r.ResolveAPIKey(ctx, "maria@example.com")
	assert.False(t, ok)

	_, ok = r.ResolvePhone(ctx, "ghost@example.com")
	assert.False(t, ok)
}

func TestCandidates(t *testing.T) {
	dir := new(MockDirectory)
	dir.On("GetDirectory", mock.Anything).Return(roster, nil)
	sched := stubSchedules{"johan@example.com": {OK: true, RowAlias: "j. giraldo"}}
	r := identity.NewResolver(dir, sched)

	got := r.Candidates(context.Background(), "johan@example.com")
	require.NotEmpty(t, got)
	assert.Equal(t, "J. GIRALDO", got[0], "the backend row alias comes first")
	assert.Contains(t, got, "GIRALDO")
	assert.Contains(t, got, "JOHAN GIRALDO")

	seen := map[string]bool{}
	for _, c := range got {
		assert.False(t, seen[c], "duplicate candidate %q", c)
		seen[c] = true
	}

	assert.Empty(t, r.Candidates(context.Background(), "ghost@example.com"))
}

func TestSplitGroups(t *testing.T) {
	records := []identity.Record{
		{Name: "Walter Boss"},
		{Name: "Johan Giraldo"},
		{Name: "Luis Perez"},
		{Name: "Sara Barrera"},
		{Name: "Elena Reyes"},
		{Name: "Sofia Zuleta"},
		{Name: "Karen Ortiz"},
		{Name: "Camilo Bustamante"},
		{Name: "Late Hire"},
	}

	g := identity.SplitGroups(records, config.DefaultGroupLabels)

	names := func(rs []identity.Record) []string {
		out := make([]string, len(rs))
		for i, r := range rs {
			out[i] = r.Name
		}
		return out
	}
	assert.Equal(t, []string{"Johan Giraldo", "Luis Perez", "Sara Barrera", "Walter Boss", "Late Hire"}, names(g.Back))
	assert.Equal(t, []string{"Elena Reyes", "Sofia Zuleta"}, names(g.Front))
	assert.Equal(t, []string{"Karen Ortiz", "Camilo Bustamante"}, names(g.Cash))
	assert.Equal(t, len(records), g.Len())
}

func TestSplitGroups_MissingBoundary(t *testing.T) {
	records := []identity.Record{{Name: "Elena Reyes"}, {Name: "Ana Lopez"}}
	g := identity.SplitGroups(records, config.DefaultGroupLabels)

	assert.Empty(t, g.Front, "a section needs both boundaries")
	assert.Len(t, g.Back, 2)
}
