package web

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"partsadmin/internal/catalog"
	"partsadmin/internal/preview"
	"partsadmin/internal/productform"
)

const (
	formsKey     = "forms"
	maxOwnedForm = 20
)

// ---------- session helpers ----------
func ownedForms(sess sessions.Session) []string {
	ids, _ := sess.Get(formsKey).([]string)
	return ids
}

func rememberForm(c *gin.Context, id string) {
	sess := sessions.Default(c)
	ids := append(ownedForms(sess), id)
	if len(ids) > maxOwnedForm {
		ids = ids[len(ids)-maxOwnedForm:]
	}
	sess.Set(formsKey, ids)
	_ = sess.Save()
}

func forgetForm(sess sessions.Session, id string) {
	ids := slices.DeleteFunc(slices.Clone(ownedForms(sess)), func(v string) bool { return v == id })
	sess.Set(formsKey, ids)
}

// entry resolves :form for the current session and answers the request
// itself when it cannot.
func (s *Server) entry(c *gin.Context) (*Entry, bool) {
	id := c.Param("form")
	if !slices.Contains(ownedForms(sessions.Default(c)), id) {
		c.String(http.StatusNotFound, "Not found")
		return nil, false
	}
	entry, ok := s.forms.Get(id)
	if !ok {
		c.Redirect(http.StatusSeeOther, "/admin/products")
		return nil, false
	}
	return entry, true
}

// ---------- product list ----------
func (s *Server) listProducts(c *gin.Context) {
	sess := sessions.Default(c)
	flashes := sess.Flashes()
	_ = sess.Save()

	data := ViewData{"Title": s.messages.Get("title.products"), "Flashes": flashes}
	items, err := s.api.Products(c.Request.Context())
	if err != nil {
		data["Error"] = err.Error()
	}
	data["Items"] = items
	c.HTML(http.StatusOK, "list.tmpl", data)
}

// ---------- open forms ----------
func (s *Server) newProduct(c *gin.Context) {
	entry := s.forms.Open(nil, s.formOptions()...)
	rememberForm(c, entry.ID)
	c.Redirect(http.StatusSeeOther, "/admin/forms/"+entry.ID)
}

func (s *Server) editProduct(c *gin.Context) {
	product, err := s.api.Product(c.Request.Context(), c.Param("id"))
	if err != nil {
		var apiErr *catalog.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			c.String(http.StatusNotFound, "Not found")
			return
		}
		c.String(http.StatusBadGateway, err.Error())
		return
	}
	entry := s.forms.Open(&product, s.formOptions()...)
	rememberForm(c, entry.ID)
	c.Redirect(http.StatusSeeOther, "/admin/forms/"+entry.ID)
}

// ---------- form ----------
func (s *Server) showForm(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	entry.Lock()
	defer entry.Unlock()
	if entry.Form.Closed() {
		c.Redirect(http.StatusSeeOther, "/admin/products")
		return
	}
	s.renderForm(c, http.StatusOK, entry, nil)
}

func (s *Server) updateForm(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	entry.Lock()
	defer entry.Unlock()
	form := entry.Form
	if form.Closed() {
		c.Redirect(http.StatusSeeOther, "/admin/products")
		return
	}

	if _, ok := c.GetPostForm("name"); ok {
		form.SetFields(bindFields(c))
	}
	// files chosen in the picker come along with whatever button was pressed
	if err := s.stageUploads(c, form); err != nil {
		s.renderForm(c, http.StatusBadRequest, entry, ViewData{"Error": err.Error()})
		return
	}

	action := c.PostForm("action")
	var err error
	switch {
	case action == "submit":
		s.submit(c, entry)
		return
	case action == "dismiss":
		form.DismissNotice()
	case strings.HasPrefix(action, "toggle:"):
		err = form.ToggleModel(strings.TrimPrefix(action, "toggle:"))
	case strings.HasPrefix(action, "remove-existing:"):
		err = atIndex(strings.TrimPrefix(action, "remove-existing:"), form.RemoveExisting)
	case strings.HasPrefix(action, "remove-staged:"):
		err = atIndex(strings.TrimPrefix(action, "remove-staged:"), form.RemoveStaged)
	}
	if err != nil {
		s.renderForm(c, http.StatusBadRequest, entry, ViewData{"Error": err.Error()})
		return
	}
	c.Redirect(http.StatusSeeOther, "/admin/forms/"+entry.ID)
}

func (s *Server) submit(c *gin.Context, entry *Entry) {
	out, err := entry.Form.Submit(c.Request.Context())
	if err != nil {
		if errors.Is(err, productform.ErrFormClosed) {
			c.Redirect(http.StatusSeeOther, "/admin/products")
			return
		}
		s.renderForm(c, http.StatusBadRequest, entry, ViewData{"FieldErrors": s.fieldErrors(err)})
		return
	}
	if !out.Success {
		s.renderForm(c, http.StatusUnprocessableEntity, entry, nil)
		return
	}

	sess := sessions.Default(c)
	sess.AddFlash(out.Message)
	forgetForm(sess, entry.ID)
	_ = sess.Save()
	s.renderForm(c, http.StatusOK, entry, ViewData{"Redirect": "/admin/products"})
}

func (s *Server) cancelForm(c *gin.Context) {
	entry, ok := s.entry(c)
	if !ok {
		return
	}
	entry.Lock()
	err := entry.Form.Cancel()
	entry.Unlock()
	if err != nil {
		c.Error(err)
	}

	sess := sessions.Default(c)
	forgetForm(sess, entry.ID)
	_ = sess.Save()
	c.Redirect(http.StatusSeeOther, "/admin/products")
}

func (s *Server) renderForm(c *gin.Context, status int, entry *Entry, extra ViewData) {
	title := s.messages.Get("title.new")
	if entry.Form.Editing() {
		title = s.messages.Get("title.edit")
	}
	data := ViewData{
		"Title":        title,
		"FieldErrors":  map[string]string{},
		"FormID":       entry.ID,
		"Form":         entry.Form,
		"Models":       productform.CompatibleModels(),
		"RefreshAfter": s.delay,
	}
	for k, v := range extra {
		data[k] = v
	}
	c.HTML(status, "form.tmpl", data)
}

// ---------- helpers ----------
func bindFields(c *gin.Context) productform.Fields {
	featured := c.PostForm("featured")
	return productform.Fields{
		Name:        c.PostForm("name"),
		Price:       c.PostForm("price"),
		Stock:       c.PostForm("stock"),
		Category:    c.PostForm("category"),
		Brand:       c.PostForm("brand"),
		PartNumber:  c.PostForm("partNumber"),
		Description: c.PostForm("description"),
		Featured:    featured == "on" || featured == "true",
	}
}

func (s *Server) stageUploads(c *gin.Context, form *productform.Form) error {
	mf, err := c.MultipartForm()
	if errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	if err != nil {
		return err
	}

	var files []*preview.File
	for _, fh := range mf.File["images"] {
		if fh.Filename == "" || fh.Size == 0 {
			continue
		}
		src, err := fh.Open()
		if err != nil {
			s.discard(files)
			return err
		}
		f, err := s.previews.Spool(fh.Filename, src)
		src.Close()
		if err != nil {
			s.discard(files)
			return err
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil
	}

	uploads := make([]productform.Upload, 0, len(files))
	for _, f := range files {
		uploads = append(uploads, f)
	}
	if err := form.AddImages(uploads...); err != nil {
		s.discard(files)
		return err
	}
	return nil
}

func (s *Server) discard(files []*preview.File) {
	for _, f := range files {
		_ = s.previews.Release(f.URL())
	}
}

func atIndex(raw string, fn func(int) error) error {
	i, err := strconv.Atoi(raw)
	if err != nil {
		return productform.ErrIndexOutOfRange
	}
	return fn(i)
}

func (s *Server) fieldErrors(err error) map[string]string {
	out := map[string]string{}
	var walk func(error)
	walk = func(err error) {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				walk(e)
			}
			return
		}
		var fe *productform.FieldError
		if errors.As(err, &fe) {
			out[fe.Field] = s.messages.Get(fe.Key)
		}
	}
	walk(err)
	return out
}
