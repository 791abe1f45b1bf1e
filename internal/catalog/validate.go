package catalog

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tanhuynh200412/catalog-admin/internal/model"
)

// categoryForm and itemForm hold trimmed draft inputs for rule checking.
type categoryForm struct {
	Title  string `form:"title" validate:"required"`
	PicURL string `form:"picUrl" validate:"required"`
}

type itemForm struct {
	Title      string `form:"title" validate:"required"`
	Price      string `form:"price" validate:"required,parsefloat,nonneg"`
	CategoryID string `form:"categoryId" validate:"required,parseint"`
	Rating     string `form:"rating" validate:"omitempty,parsefloat"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("form")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	rules := map[string]validator.Func{
		"parsefloat": func(fl validator.FieldLevel) bool {
			_, ok := parseFloat(fl.Field().String())
			return ok
		},
		"parseint": func(fl validator.FieldLevel) bool {
			_, err := strconv.Atoi(fl.Field().String())
			return err == nil
		},
		"nonneg": func(fl validator.FieldLevel) bool {
			f, ok := parseFloat(fl.Field().String())
			return ok && f >= 0
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %s: %v", tag, err))
		}
	}

	return v
}

// ValidateCategory checks a category draft and converts it to a record.
// Title and picture URL must be non-blank.
func ValidateCategory(d CategoryDraft) (model.Category, error) {
	form := categoryForm{
		Title:  strings.TrimSpace(d.Title),
		PicURL: strings.TrimSpace(d.PicURL),
	}
	if err := checkForm(form); err != nil {
		return model.Category{}, err
	}

	return model.Category{
		ID:     d.ID,
		Title:  d.Title,
		PicURL: d.PicURL,
	}, nil
}

// ValidateItem checks an item draft against the given category list and
// converts it to a record. Quantity falls back to DefaultQuantity when it is
// not a positive integer; rating is not range checked.
func ValidateItem(d ItemDraft, categories []model.Category) (model.Item, error) {
	form := itemForm{
		Title:      strings.TrimSpace(d.Title),
		Price:      strings.TrimSpace(d.Price),
		CategoryID: strings.TrimSpace(d.CategoryID),
		Rating:     strings.TrimSpace(d.Rating),
	}
	if err := checkForm(form); err != nil {
		return model.Item{}, err
	}

	price, _ := parseFloat(form.Price)
	categoryID, _ := strconv.Atoi(form.CategoryID)

	var rating float64
	if form.Rating != "" {
		rating, _ = parseFloat(form.Rating)
	}

	if !hasCategory(categories, categoryID) {
		return model.Item{}, &ReferentialError{CategoryID: categoryID}
	}

	return model.Item{
		ID:              d.ID,
		Title:           d.Title,
		Quantity:        parseQuantity(d.Quantity),
		Model:           append([]string{}, d.Model...),
		PicURL:          append([]string{}, d.PicURL...),
		Description:     d.Description,
		Price:           price,
		Rating:          rating,
		CategoryID:      categoryID,
		ShowRecommended: d.ShowRecommended,
	}, nil
}

func checkForm(form any) error {
	err := validate.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate draft: %w", err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = messageForTag(fe.Tag())
	}
	return &ValidationError{Fields: fields}
}

func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "parsefloat":
		return "must be a number"
	case "parseint":
		return "must be an integer"
	case "nonneg":
		return "must not be negative"
	default:
		return "is invalid"
	}
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseQuantity(s string) int {
	q, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || q < 1 {
		return DefaultQuantity
	}
	return q
}

func hasCategory(categories []model.Category, id int) bool {
	for _, c := range categories {
		if n, ok := c.Key().Int(); ok && n == id {
			return true
		}
	}
	return false
}
