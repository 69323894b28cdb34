package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"partsadmin/internal/models"
	"partsadmin/internal/productform"
)

func newCategoriesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := a.api.Categories(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cats {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a product as the form would load it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			f := productform.New(a.api, &p)
			fields := f.Fields()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "id:          %s\n", p.ID)
			fmt.Fprintf(out, "name:        %s\n", fields.Name)
			fmt.Fprintf(out, "price:       %s\n", fields.Price)
			fmt.Fprintf(out, "stock:       %s\n", fields.Stock)
			fmt.Fprintf(out, "category:    %s\n", fields.Category)
			fmt.Fprintf(out, "brand:       %s\n", fields.Brand)
			fmt.Fprintf(out, "partNumber:  %s\n", fields.PartNumber)
			fmt.Fprintf(out, "featured:    %t\n", fields.Featured)
			fmt.Fprintf(out, "compatible:  %s\n", strings.Join(f.Compatible(), ", "))
			for i, img := range f.ExistingImages() {
				fmt.Fprintf(out, "image[%d]:    %s\n", i, img.URL)
			}
			return nil
		},
	}
}

// productFlags are the form inputs accepted on the command line.
type productFlags struct {
	name, price, stock, category   string
	brand, partNumber, description string
	featured                       bool
	toggle                         []string
	images                         []string
	dropImages                     []int
}

func (pf *productFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&pf.name, "name", "", "product name")
	fl.StringVar(&pf.price, "price", "", "price")
	fl.StringVar(&pf.stock, "stock", "", "units in stock")
	fl.StringVar(&pf.category, "category", "", "category id (empty for none)")
	fl.StringVar(&pf.brand, "brand", "", "brand")
	fl.StringVar(&pf.partNumber, "part-number", "", "manufacturer part number")
	fl.StringVar(&pf.description, "description", "", "description")
	fl.BoolVar(&pf.featured, "featured", false, "mark as featured")
	fl.StringSliceVar(&pf.toggle, "toggle", nil, "compatible models to toggle, in order ("+strings.Join(productform.CompatibleModels(), ", ")+")")
	fl.StringArrayVar(&pf.images, "image", nil, "image file to upload (repeatable)")
}

// apply copies the flags the user set into the form.
func (pf *productFlags) apply(cmd *cobra.Command, f *productform.Form) error {
	set := map[string]string{
		"name":        pf.name,
		"price":       pf.price,
		"stock":       pf.stock,
		"category":    pf.category,
		"brand":       pf.brand,
		"part-number": pf.partNumber,
		"description": pf.description,
	}
	wire := map[string]string{"part-number": "partNumber"}
	for flag, value := range set {
		if !cmd.Flags().Changed(flag) {
			continue
		}
		field := flag
		if w, ok := wire[flag]; ok {
			field = w
		}
		if err := f.SetField(field, value); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("featured") {
		fields := f.Fields()
		fields.Featured = pf.featured
		f.SetFields(fields)
	}

	for _, model := range pf.toggle {
		if err := f.ToggleModel(strings.TrimSpace(model)); err != nil {
			return err
		}
	}

	drops := append([]int(nil), pf.dropImages...)
	sort.Sort(sort.Reverse(sort.IntSlice(drops)))
	for _, i := range drops {
		if err := f.RemoveExisting(i); err != nil {
			return err
		}
	}

	uploads := make([]productform.Upload, 0, len(pf.images))
	for _, path := range pf.images {
		u, err := productform.NewFileUpload(path)
		if err != nil {
			return err
		}
		uploads = append(uploads, u)
	}
	return f.AddImages(uploads...)
}

func (a *app) save(cmd *cobra.Command, product *models.Product, pf *productFlags) error {
	f := productform.New(a.api, product,
		productform.WithMessages(a.messages),
		productform.WithPolicy(a.policy),
		productform.WithPreviews(productform.DiscardPreviews{}),
		productform.WithSavedDelay(0),
	)
	defer f.Close()

	if err := pf.apply(cmd, f); err != nil {
		return err
	}
	if f.OverAdvice() {
		fmt.Fprintln(cmd.ErrOrStderr(), a.messages.Get("image_over_limit"))
	}

	out, err := f.Submit(cmd.Context())
	if err != nil {
		return a.describe(err)
	}
	if !out.Success {
		return errors.New(out.Message)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out.Message)
	return nil
}

func newCreateCmd(a *app) *cobra.Command {
	pf := &productFlags{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.save(cmd, nil, pf)
		},
	}
	pf.register(cmd)
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	pf := &productFlags{}
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a product; unset flags keep their current value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.api.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.save(cmd, &p, pf)
		},
	}
	pf.register(cmd)
	cmd.Flags().IntSliceVar(&pf.dropImages, "drop-image", nil, "position of a current image to remove (repeatable)")
	return cmd
}

// describe spells out failed input constraints in the configured locale.
func (a *app) describe(err error) error {
	var fieldErr *productform.FieldError
	if !errors.As(err, &fieldErr) {
		return err
	}
	var joined interface{ Unwrap() []error }
	errs := []error{err}
	if errors.As(err, &joined) {
		errs = joined.Unwrap()
	}
	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		if errors.As(e, &fieldErr) {
			lines = append(lines, fieldErr.Field+": "+a.messages.Get(fieldErr.Key))
		}
	}
	return errors.New(strings.Join(lines, "\n"))
}
