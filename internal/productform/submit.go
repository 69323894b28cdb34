package productform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"partsadmin/internal/catalog"
)

// State is the submit state of a form.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "idle"
	}
}

// SuccessPolicy decides whether a failed save is reported as a success.
type SuccessPolicy func(err error) bool

// OptimisticPolicy reports a save as done when no response arrived or the
// response status is below 400. The change has usually been applied
// already when the connection drops after the request was sent.
func OptimisticPolicy(err error) bool {
	if errors.Is(err, catalog.ErrEncode) {
		return false
	}
	var apiErr *catalog.APIError
	if !errors.As(err, &apiErr) {
		return true
	}
	return apiErr.Status < 400
}

// StrictPolicy reports every failure as an error.
func StrictPolicy(error) bool { return false }

// ParsePolicy maps a config value to a policy.
func ParsePolicy(name string) (SuccessPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "optimistic":
		return OptimisticPolicy, nil
	case "strict":
		return StrictPolicy, nil
	}
	return nil, fmt.Errorf("unknown submit policy %q", name)
}

// Outcome is what the surface shows after a submit.
type Outcome struct {
	Success bool
	Message string
}

func (f *Form) State() State { return f.state }

// Loading reports whether the submit control is disabled.
func (f *Form) Loading() bool { return f.state == StateSubmitting }

// ErrorMessage is the inline error notice, empty when there is none.
func (f *Form) ErrorMessage() string { return f.errMsg }

func (f *Form) Success() string { return f.success }

// DismissNotice clears the success and error notices.
func (f *Form) DismissNotice() {
	f.errMsg = ""
	f.success = ""
}

type keepImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Payload builds the multipart body of a save.
func (f *Form) Payload() (*catalog.Payload, error) {
	p := &catalog.Payload{}
	p.Add("name", f.fields.Name)
	p.Add("price", f.fields.Price)
	p.Add("stock", f.fields.Stock)
	p.Add("category", f.fields.Category)
	p.Add("brand", f.fields.Brand)
	p.Add("partNumber", f.fields.PartNumber)
	p.Add("description", f.fields.Description)
	p.Add("featured", strconv.FormatBool(f.fields.Featured))
	p.Add("compatible", strings.Join(f.compatible, ","))

	keep := make([]keepImage, 0, len(f.existing))
	for _, img := range f.existing {
		keep = append(keep, keepImage{URL: img.URL, Filename: img.Filename})
	}
	raw, err := json.Marshal(keep)
	if err != nil {
		return nil, err
	}
	p.Add("keepImages", string(raw))

	for _, staged := range f.staging.Files() {
		p.Files = append(p.Files, catalog.FilePart{
			Name:     "images",
			Filename: staged.Upload.Filename(),
			Open:     staged.Upload.Open,
		})
	}
	return p, nil
}

// Submit saves the form: update when editing, create otherwise. The request
// is not cancelled with ctx once it has started. Constraint violations are
// returned before anything is sent; API failures end up in the Outcome.
func (f *Form) Submit(ctx context.Context) (Outcome, error) {
	if f.closed {
		return Outcome{}, ErrFormClosed
	}
	if f.state == StateSubmitting {
		return Outcome{}, ErrSubmitInFlight
	}
	if err := f.Validate(); err != nil {
		return Outcome{}, err
	}

	f.DismissNotice()
	f.state = StateSubmitting

	err := f.dispatch(context.WithoutCancel(ctx))
	if err == nil || f.policy(err) {
		if err != nil {
			logf("save of %q reported as done despite: %v", f.fields.Name, err)
		}
		return f.succeed(), nil
	}
	return f.fail(err), nil
}

func (f *Form) dispatch(ctx context.Context) error {
	payload, err := f.Payload()
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrEncode, err)
	}
	if f.editing {
		return f.api.UpdateProduct(ctx, f.productID, payload)
	}
	return f.api.CreateProduct(ctx, payload)
}

func (f *Form) succeed() Outcome {
	f.state = StateSucceeded
	if f.editing {
		f.success = f.messages.Get("product_updated")
	} else {
		f.success = f.messages.Get("product_created")
	}
	if f.onSaved != nil {
		time.AfterFunc(f.savedDelay, f.onSaved)
	}
	return Outcome{Success: true, Message: f.success}
}

func (f *Form) fail(err error) Outcome {
	f.state = StateFailed
	msg := ""
	var apiErr *catalog.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}
	if msg == "" {
		msg = f.messages.Get("save_failed")
	}
	logf("save of %q failed: %v", f.fields.Name, err)
	f.errMsg = msg
	return Outcome{Message: msg}
}

func logf(format string, args ...any) {
	log.Printf("productform: "+format, args...)
}
