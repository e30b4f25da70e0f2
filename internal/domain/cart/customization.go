package cart

import (
	"strings"

	"github.com/go-faster/errors"
)

// MaxUploadedImages is the number of reference images a customer may attach.
const MaxUploadedImages = 5

// ErrInvalidCustomization is returned for a customization that cannot be
// attached to a cart line.
var ErrInvalidCustomization = errors.New("invalid customization")

// Customization describes how one product instance was personalized. An empty
// field means the product was not customized on that axis.
type Customization struct {
	Size                string   `json:"size,omitempty"`
	Color               string   `json:"color,omitempty"`
	PrintArea           string   `json:"printArea,omitempty"`
	CustomText          string   `json:"customText,omitempty"`
	SpecialInstructions string   `json:"specialInstructions,omitempty"`
	UploadedImageRefs   []string `json:"uploadedImageRefs,omitempty"`
	// Quantity requested in the customization flow. Zero means one.
	Quantity int `json:"quantity,omitempty"`
}

// IsEmpty reports whether c carries no personalization. An empty
// customization behaves exactly like none.
func (c *Customization) IsEmpty() bool {
	return c == nil || c.Fingerprint() == ""
}

// Validate checks the attachment limits.
func (c *Customization) Validate() error {
	if c == nil {
		return nil
	}
	if len(c.UploadedImageRefs) > MaxUploadedImages {
		return errors.Wrapf(ErrInvalidCustomization, "at most %d images, got %d", MaxUploadedImages, len(c.UploadedImageRefs))
	}
	if c.Quantity < 0 {
		return errors.Wrapf(ErrInvalidCustomization, "quantity %d", c.Quantity)
	}
	return nil
}

// Fingerprint serializes every personalization axis except Quantity in a fixed
// order. Equal fingerprints mean the same personalization.
func (c *Customization) Fingerprint() string {
	if c == nil {
		return ""
	}

	var b strings.Builder
	write := func(name, escaped string) {
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(escaped)
	}
	field := func(name, v string) {
		if v = strings.TrimSpace(v); v != "" {
			write(name, escape(v))
		}
	}
	field("size", c.Size)
	field("color", c.Color)
	field("print", c.PrintArea)
	field("text", c.CustomText)
	field("note", c.SpecialInstructions)

	refs := make([]string, 0, len(c.UploadedImageRefs))
	for _, r := range c.UploadedImageRefs {
		if r = strings.TrimSpace(r); r != "" {
			refs = append(refs, escape(r))
		}
	}
	if len(refs) > 0 {
		write("images", strings.Join(refs, ","))
	}
	return b.String()
}

// clone returns a deep copy so callers cannot mutate an attached customization.
func (c *Customization) clone() *Customization {
	if c == nil {
		return nil
	}
	out := *c
	if c.UploadedImageRefs != nil {
		out.UploadedImageRefs = append([]string(nil), c.UploadedImageRefs...)
	}
	return &out
}

var escaper = strings.NewReplacer(`\`, `\\`, `;`, `\;`, `=`, `\=`, `,`, `\,`, `|`, `\|`)

func escape(s string) string {
	return escaper.Replace(s)
}
