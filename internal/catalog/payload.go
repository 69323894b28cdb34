package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
)

// ErrEncode marks failures to build a request body. Nothing was sent.
var ErrEncode = errors.New("encode payload")

// Field is one text part of a multipart payload.
type Field struct {
	Name  string
	Value string
}

// FilePart is one binary part of a multipart payload.
type FilePart struct {
	Name     string
	Filename string
	Open     func() (io.ReadCloser, error)
}

// Payload is an ordered multipart/form-data body.
type Payload struct {
	Fields []Field
	Files  []FilePart
}

// Add appends a text field.
func (p *Payload) Add(name, value string) {
	p.Fields = append(p.Fields, Field{Name: name, Value: value})
}

// Value returns the first value stored under name.
func (p *Payload) Value(name string) (string, bool) {
	for _, f := range p.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Encode writes the text fields in order, then the files.
func (p *Payload) Encode() (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for _, f := range p.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return nil, "", err
		}
	}
	for _, f := range p.Files {
		if err := writeFile(w, f); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

func writeFile(w *multipart.Writer, f FilePart) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Filename, err)
	}
	defer src.Close()

	part, err := w.CreateFormFile(f.Name, f.Filename)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("copy %s: %w", f.Filename, err)
	}
	return nil
}
