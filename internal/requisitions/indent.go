// Package requisitions validates and submits material requisition indents.
package requisitions

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-admin/internal/attachments"
	"github.com/odyssey-erp/odyssey-admin/internal/shared"
)

// MaxItemAttachments bounds the files attached to one item.
const MaxItemAttachments = 5

const submitPath = "/requisitions"

// Item is one requested material line.
type Item struct {
	MaterialID    string                `json:"materialId,omitempty"`
	ItemName      string                `json:"itemName" validate:"required,max=120"`
	Quantity      float64               `json:"quantity" validate:"gt=0"`
	Unit          string                `json:"unit" validate:"required"`
	EstimatedCost float64               `json:"estimatedCost" validate:"gte=0"`
	Remarks       string                `json:"remarks,omitempty" validate:"max=500"`
	Attachments   []attachments.Preview `json:"attachments,omitempty"`
}

// WithAttachments returns a copy of it with the successful previews appended.
// The receiver's attachment slice is left untouched.
func (it Item) WithAttachments(previews []attachments.Preview) Item {
	added := attachments.Succeeded(previews)
	out := it
	out.Attachments = make([]attachments.Preview, 0, len(it.Attachments)+len(added))
	out.Attachments = append(out.Attachments, it.Attachments...)
	out.Attachments = append(out.Attachments, added...)
	return out
}

// Indent is a material requisition: a header plus its items.
type Indent struct {
	Purpose    string `json:"purpose" validate:"required,max=200"`
	Department string `json:"department" validate:"required"`
	Branch     string `json:"branch" validate:"required"`
	Priority   string `json:"priority" validate:"required,oneof=LOW MEDIUM HIGH URGENT"`
	RequiredBy string `json:"requiredBy" validate:"required,datetime=2006-01-02"`
	Remarks    string `json:"remarks,omitempty" validate:"max=1000"`
	Items      []Item `json:"items" validate:"min=1,dive"`
}

// ErrItemIndex is returned for an item position outside the indent.
var ErrItemIndex = fmt.Errorf("%w: item does not exist", shared.ErrNotFound)

// WithItem returns a copy of in with the item at i replaced.
func (in Indent) WithItem(i int, item Item) (Indent, error) {
	if i < 0 || i >= len(in.Items) {
		return in, fmt.Errorf("%w: index %d", ErrItemIndex, i)
	}
	out := in
	out.Items = slices.Clone(in.Items)
	out.Items[i] = item
	return out, nil
}

func (in Indent) normalized() Indent {
	out := in
	out.Purpose = strings.TrimSpace(in.Purpose)
	out.Priority = strings.ToUpper(strings.TrimSpace(in.Priority))
	out.RequiredBy = strings.TrimSpace(in.RequiredBy)
	out.Items = make([]Item, len(in.Items))
	for i, it := range in.Items {
		it.ItemName = strings.TrimSpace(it.ItemName)
		it.Unit = strings.TrimSpace(it.Unit)
		out.Items[i] = it
	}
	return out
}

// Validate reports every problem with in at once. Item complaints are keyed
// "items[i].field".
func Validate(v *shared.Validator, in Indent, now time.Time) shared.FieldErrors {
	in = in.normalized()
	errs := v.Struct(in)
	if _, ok := errs["requiredBy"]; !ok {
		due, err := time.ParseInLocation(time.DateOnly, in.RequiredBy, now.Location())
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if err == nil && due.Before(today) {
			errs.Add("requiredBy", "must not be in the past")
		}
	}
	for i, it := range in.Items {
		if len(it.Attachments) > MaxItemAttachments {
			errs.Add(fmt.Sprintf("items[%d].attachments", i), fmt.Sprintf("must have at most %d entries", MaxItemAttachments))
		}
	}
	return errs
}
