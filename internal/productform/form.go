// Package productform is the product editing form of the admin panel:
// field state, compatible models, image staging and the save pipeline.
package productform

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"partsadmin/internal/catalog"
	"partsadmin/internal/models"
)

var (
	ErrUnknownModel    = errors.New("unknown compatible model")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrSubmitInFlight  = errors.New("submit already in progress")
	ErrFormClosed      = errors.New("form is closed")
)

// DefaultSavedDelay keeps the success notice visible before the caller reacts.
const DefaultSavedDelay = 1200 * time.Millisecond

// API is the part of the shop API the form needs.
type API interface {
	Categories(ctx context.Context) ([]models.Category, error)
	CreateProduct(ctx context.Context, p *catalog.Payload) error
	UpdateProduct(ctx context.Context, id string, p *catalog.Payload) error
}

// Fields are the scalar inputs. Price and Stock keep the raw input text.
type Fields struct {
	Name        string
	Price       string
	Stock       string
	Category    string
	Brand       string
	PartNumber  string
	Description string
	Featured    bool
}

// Form holds the state of one product form. It is not safe for concurrent
// use; callers serialize access.
type Form struct {
	api       API
	productID string
	editing   bool

	fields     Fields
	compatible []string
	categories []models.Category
	existing   []models.Image
	staging    *Staging

	state   State
	errMsg  string
	success string

	messages   *Messages
	policy     SuccessPolicy
	savedDelay time.Duration
	onSaved    func()
	onClose    func()
	closed     bool
}

type Option func(*Form)

func WithPreviews(store PreviewStore) Option {
	return func(f *Form) { f.staging = NewStaging(store) }
}

func WithPolicy(policy SuccessPolicy) Option {
	return func(f *Form) {
		if policy != nil {
			f.policy = policy
		}
	}
}

func WithMessages(m *Messages) Option {
	return func(f *Form) {
		if m != nil {
			f.messages = m
		}
	}
}

func WithSavedDelay(d time.Duration) Option {
	return func(f *Form) { f.savedDelay = d }
}

// OnSaved is called once the saved delay has passed after a success.
func OnSaved(fn func()) Option {
	return func(f *Form) { f.onSaved = fn }
}

// OnClose is called when the form is cancelled.
func OnClose(fn func()) Option {
	return func(f *Form) { f.onClose = fn }
}

// New opens a form. A nil product opens an empty create form.
func New(api API, product *models.Product, opts ...Option) *Form {
	f := &Form{
		api:        api,
		compatible: []string{},
		existing:   []models.Image{},
		staging:    NewStaging(nil),
		policy:     OptimisticPolicy,
		savedDelay: DefaultSavedDelay,
	}
	if product != nil {
		f.editing = true
		f.productID = product.ID
		f.fields = fieldsFromProduct(product)
		f.compatible = ParseCompatible(product.Compatible)
		f.existing = slices.Clone(product.Images)
		if f.existing == nil {
			f.existing = []models.Image{}
		}
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.messages == nil {
		f.messages = MustMessages(DefaultLocale)
	}
	return f
}

func fieldsFromProduct(p *models.Product) Fields {
	fields := Fields{
		Name:        p.Name,
		Category:    p.Category.ID,
		Brand:       p.Brand,
		PartNumber:  p.PartNumber,
		Description: p.Description,
		Featured:    p.Featured,
	}
	if p.Price.Valid {
		fields.Price = p.Price.Decimal.String()
	}
	if p.Stock != nil {
		fields.Stock = strconv.Itoa(*p.Stock)
	}
	return fields
}

// Editing reports whether the form updates an existing product.
func (f *Form) Editing() bool { return f.editing }

func (f *Form) ProductID() string { return f.productID }

func (f *Form) Fields() Fields { return f.fields }

// SetFields replaces every scalar field at once.
func (f *Form) SetFields(fields Fields) { f.fields = fields }

// SetField sets one scalar field by its wire name.
func (f *Form) SetField(name, value string) error {
	switch name {
	case "name":
		f.fields.Name = value
	case "price":
		f.fields.Price = value
	case "stock":
		f.fields.Stock = value
	case "category":
		f.fields.Category = value
	case "brand":
		f.fields.Brand = value
	case "partNumber":
		f.fields.PartNumber = value
	case "description":
		f.fields.Description = value
	case "featured":
		featured, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("featured: %w", err)
		}
		f.fields.Featured = featured
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// FieldError is a failed input constraint.
type FieldError struct {
	Field string
	Key   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Key)
}

// Validate checks the input constraints the surface enforces before a
// submit: name and price are required and numeric inputs must be numbers.
func (f *Form) Validate() error {
	var errs []error
	if strings.TrimSpace(f.fields.Name) == "" {
		errs = append(errs, &FieldError{Field: "name", Key: "required_field"})
	}
	price := strings.TrimSpace(f.fields.Price)
	if price == "" {
		errs = append(errs, &FieldError{Field: "price", Key: "required_field"})
	} else if _, err := decimal.NewFromString(price); err != nil {
		errs = append(errs, &FieldError{Field: "price", Key: "invalid_number"})
	}
	if stock := strings.TrimSpace(f.fields.Stock); stock != "" {
		if _, err := decimal.NewFromString(stock); err != nil {
			errs = append(errs, &FieldError{Field: "stock", Key: "invalid_number"})
		}
	}
	return errors.Join(errs...)
}

// SetCategories stores the category reference data.
func (f *Form) SetCategories(cats []models.Category) {
	f.categories = slices.Clone(cats)
}

// LoadCategories fetches the categories and stores them.
func (f *Form) LoadCategories(ctx context.Context) error {
	cats, err := f.api.Categories(ctx)
	if err != nil {
		return err
	}
	f.SetCategories(cats)
	return nil
}

func (f *Form) Categories() []models.Category { return slices.Clone(f.categories) }

func (f *Form) ExistingImages() []models.Image { return slices.Clone(f.existing) }

// RemoveExisting drops the kept image at i. The server deletes it on save.
func (f *Form) RemoveExisting(i int) error {
	if i < 0 || i >= len(f.existing) {
		return fmt.Errorf("%w: existing image %d", ErrIndexOutOfRange, i)
	}
	f.existing = slices.Delete(f.existing, i, i+1)
	return nil
}

// AddImages stages newly selected files.
func (f *Form) AddImages(uploads ...Upload) error {
	if f.closed {
		return ErrFormClosed
	}
	return f.staging.Add(uploads...)
}

// RemoveStaged drops the staged file at i and releases its preview.
func (f *Form) RemoveStaged(i int) error {
	return f.staging.Remove(i)
}

func (f *Form) StagedFiles() []StagedFile { return f.staging.Files() }

// OverAdvice reports whether the photos exceed the advisory limits.
func (f *Form) OverAdvice() bool {
	staged := f.staging.Files()
	if len(f.existing)+len(staged) > MaxPhotos {
		return true
	}
	for _, s := range staged {
		if s.Upload.Size() > MaxPhotoBytes {
			return true
		}
	}
	return false
}

func (f *Form) Messages() *Messages { return f.messages }

// Close tears the form down and releases every staged preview.
func (f *Form) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return f.staging.Close()
}

func (f *Form) Closed() bool { return f.closed }

// Cancel closes the form and notifies the caller.
func (f *Form) Cancel() error {
	err := f.Close()
	if f.onClose != nil {
		f.onClose()
	}
	return err
}
