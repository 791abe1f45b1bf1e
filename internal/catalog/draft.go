package catalog

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// Draft field and list names, as used on the wire.
const (
	FieldID              = "id"
	FieldTitle           = "title"
	FieldPicURL          = "picUrl"
	FieldQuantity        = "quantity"
	FieldModel           = "model"
	FieldDescription     = "description"
	FieldPrice           = "price"
	FieldRating          = "rating"
	FieldCategoryID      = "categoryId"
	FieldShowRecommended = "showRecommended"
)

// DefaultQuantity is the quantity of a new item draft and the fallback for
// an unparsable one.
const DefaultQuantity = 1

// CategoryDraft is a category under construction.
type CategoryDraft struct {
	ID     model.Key `json:"id"`
	Title  string    `json:"title"`
	PicURL string    `json:"picUrl"`
}

// NewCategoryDraft starts a category draft with an allocated identifier.
func NewCategoryDraft(id int) CategoryDraft {
	return CategoryDraft{ID: model.KeyFromInt(id)}
}

// Key returns the allocated identifier.
func (d CategoryDraft) Key() model.Key { return d.ID }

// SetField returns a copy of the draft with one scalar field replaced.
func (d CategoryDraft) SetField(name, value string) (CategoryDraft, error) {
	switch name {
	case FieldTitle:
		d.Title = value
	case FieldPicURL:
		d.PicURL = value
	case FieldID:
		return d, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	default:
		return d, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return d, nil
}

// AppendTag always fails: categories have no list fields.
func (d CategoryDraft) AppendTag(list, _ string) (CategoryDraft, error) {
	return d, fmt.Errorf("%w: %s", ErrUnknownField, list)
}

// RemoveTag always fails: categories have no list fields.
func (d CategoryDraft) RemoveTag(list string, _ int) (CategoryDraft, error) {
	return d, fmt.Errorf("%w: %s", ErrUnknownField, list)
}

// ItemDraft is an item under construction. Scalar inputs are kept as typed
// and only converted by ValidateItem.
type ItemDraft struct {
	ID              model.Key `json:"id"`
	Title           string    `json:"title"`
	Quantity        string    `json:"quantity"`
	Model           []string  `json:"model"`
	PicURL          []string  `json:"picUrl"`
	Description     string    `json:"description"`
	Price           string    `json:"price"`
	Rating          string    `json:"rating"`
	CategoryID      string    `json:"categoryId"`
	ShowRecommended bool      `json:"showRecommended"`
}

// NewItemDraft starts an item draft with an allocated identifier.
func NewItemDraft(id int) ItemDraft {
	return ItemDraft{
		ID:       model.KeyFromInt(id),
		Quantity: strconv.Itoa(DefaultQuantity),
		Model:    []string{},
		PicURL:   []string{},
	}
}

// Key returns the allocated identifier.
func (d ItemDraft) Key() model.Key { return d.ID }

// SetField returns a copy of the draft with one scalar field replaced.
func (d ItemDraft) SetField(name, value string) (ItemDraft, error) {
	d = d.clone()

	switch name {
	case FieldTitle:
		d.Title = value
	case FieldQuantity:
		d.Quantity = value
	case FieldDescription:
		d.Description = value
	case FieldPrice:
		d.Price = value
	case FieldRating:
		d.Rating = value
	case FieldCategoryID:
		d.CategoryID = value
	case FieldShowRecommended:
		b, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return d, fmt.Errorf("%w: %s must be a boolean", ErrInvalidFieldValue, name)
		}
		d.ShowRecommended = b
	case FieldID:
		return d, fmt.Errorf("%w: %s", ErrReadOnlyField, name)
	default:
		return d, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return d, nil
}

// AppendTag appends value to the model or picUrl list. Values that are blank
// after trimming are ignored; others are stored as given.
func (d ItemDraft) AppendTag(list, value string) (ItemDraft, error) {
	d = d.clone()

	target, err := d.list(list)
	if err != nil {
		return d, err
	}
	if strings.TrimSpace(value) == "" {
		return d, nil
	}
	*target = append(*target, value)
	return d, nil
}

// RemoveTag removes the entry at index from the model or picUrl list. An
// out of range index leaves the list unchanged.
func (d ItemDraft) RemoveTag(list string, index int) (ItemDraft, error) {
	d = d.clone()

	target, err := d.list(list)
	if err != nil {
		return d, err
	}
	if index < 0 || index >= len(*target) {
		return d, nil
	}
	*target = slices.Delete(*target, index, index+1)
	return d, nil
}

func (d *ItemDraft) list(name string) (*[]string, error) {
	switch name {
	case FieldModel:
		return &d.Model, nil
	case FieldPicURL:
		return &d.PicURL, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
}

// clone copies the list fields so the receiver's backing arrays are never
// shared with the returned draft.
func (d ItemDraft) clone() ItemDraft {
	d.Model = append(make([]string, 0, len(d.Model)), d.Model...)
	d.PicURL = append(make([]string, 0, len(d.PicURL)), d.PicURL...)
	return d
}
