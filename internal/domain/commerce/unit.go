package commerce

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

const (
	UnitTypeGeneration = "generation"
	UnitTypeBacklink   = "backlink"
)

// OrderUnit is one purchasable line item: either a brand-new generated
// article, or a backlink spliced into an existing article. It is a tagged
// union validated at the boundary; business code switches on Type and never
// sees a loose map.
type OrderUnit struct {
	Type string `json:"type"`

	// Generation fields.
	Topic    string    `json:"topic,omitempty"`
	DomainID uuid.UUID `json:"domain_id,omitempty"`
	Slug     string    `json:"slug,omitempty"`

	// Backlink fields.
	ContentItemID uuid.UUID `json:"content_item_id,omitempty"`
	TargetURL     string    `json:"target_url,omitempty"`
	AnchorText    string    `json:"anchor_text,omitempty"`

	PriceCents int64 `json:"price_cents"`
}

func (u OrderUnit) IsGeneration() bool { return u.Type == UnitTypeGeneration }
func (u OrderUnit) IsBacklink() bool   { return u.Type == UnitTypeBacklink }

// Validate enforces the variant's required fields. Called once at the HTTP
// boundary; everything downstream may assume a well-formed unit.
func (u OrderUnit) Validate() error {
	switch u.Type {
	case UnitTypeGeneration:
		if strings.TrimSpace(u.Topic) == "" {
			return fmt.Errorf("generation unit requires topic")
		}
		if u.DomainID == uuid.Nil {
			return fmt.Errorf("generation unit requires domain_id")
		}
	case UnitTypeBacklink:
		if u.ContentItemID == uuid.Nil {
			return fmt.Errorf("backlink unit requires content_item_id")
		}
		if strings.TrimSpace(u.AnchorText) == "" {
			return fmt.Errorf("backlink unit requires anchor_text")
		}
		parsed, err := url.Parse(strings.TrimSpace(u.TargetURL))
		if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
			return fmt.Errorf("backlink unit requires an absolute http(s) target_url")
		}
	default:
		return fmt.Errorf("unknown unit type %q", u.Type)
	}
	if u.PriceCents < 0 {
		return fmt.Errorf("unit price must not be negative")
	}
	return nil
}

func MarshalUnits(units []OrderUnit) ([]byte, error) {
	return json.Marshal(units)
}

func UnmarshalUnits(raw []byte) ([]OrderUnit, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var units []OrderUnit
	if err := json.Unmarshal(raw, &units); err != nil {
		return nil, err
	}
	return units, nil
}

// TotalPriceCents is the session price: sum of unit prices.
func TotalPriceCents(units []OrderUnit) int64 {
	var total int64
	for _, u := range units {
		total += u.PriceCents
	}
	return total
}
