package export

import (
	"fmt"
	"io"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-rota/internal/config"
	"github.com/tartampluch/go-rota/internal/identity"
)

// Directory writes one vCard 4.0 per record. The canonical alias is stored
// as NICKNAME so address books can search by the name used on the rota.
func Directory(w io.Writer, records []identity.Record) error {
	enc := vcard.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(Card(rec)); err != nil {
			return fmt.Errorf("%s: %w", config.ErrVCardEncode, err)
		}
	}
	return nil
}

// Card converts a directory record into a vCard.
func Card(rec identity.Record) vcard.Card {
	card := make(vcard.Card)
	name := rec.Name
	if name == "" {
		name = rec.Email
	}
	card.SetValue(vcard.FieldFormattedName, name)
	if rec.Email != "" {
		card.AddValue(vcard.FieldEmail, rec.Email)
	}
	if rec.Phone != "" {
		card.AddValue(vcard.FieldTelephone, rec.Phone)
	}
	if rec.Role != "" {
		card.SetValue(vcard.FieldRole, rec.Role)
	}
	if alias := identity.DeriveAlias(rec.Name); alias != "" {
		card.SetValue(vcard.FieldNickname, alias)
	}
	vcard.ToV4(card)
	return card
}
