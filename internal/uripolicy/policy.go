// Package uripolicy is an allowlist BoundaryCallback for the content
// filters: URIs pass when their scheme and host are listed, relative
// URIs pass when allowed.
package uripolicy

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultPolicy []byte

var (
	schemeRegexp   = regexp.MustCompile(`^[a-z][a-z0-9+.-]*$`)
	mimeTypeRegexp = regexp.MustCompile(`^[a-z0-9!#$&^_.+-]+/[a-z0-9!#$&^_.+-]+$`)
)

// Policy lists what a Callback lets through.
type Policy struct {
	Schemes        []string `yaml:"schemes"`
	Hosts          []string `yaml:"hosts"` // empty means any host
	AllowRelative  bool     `yaml:"allow_relative"`
	AllowGetForms  bool     `yaml:"allow_get_forms"`
	AllowPostForms bool     `yaml:"allow_post_forms"`
	AllowBaseHref  bool     `yaml:"allow_base_href"`
	MIMETypes      []string `yaml:"mime_types"` // empty means any type
}

// Default returns the built-in policy.
func Default() *Policy {
	p, err := Parse(defaultPolicy)
	if err != nil {
		panic("uripolicy: bad default policy: " + err.Error())
	}
	return p
}

// Parse decodes and validates a YAML policy.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse uri policy: %w", err)
	}
	for i, s := range p.Schemes {
		p.Schemes[i] = strings.ToLower(strings.TrimSpace(s))
	}
	for i, h := range p.Hosts {
		p.Hosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid uri policy: %w", err)
	}
	return &p, nil
}

// Load reads a YAML policy file.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read uri policy: %w", err)
	}
	return Parse(data)
}

// Validate checks the policy.
func (p *Policy) Validate() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.Schemes,
			validation.Required,
			validation.Each(validation.Match(schemeRegexp).Error("must be a lower-case URI scheme"))),
		validation.Field(&p.Hosts, validation.Each(is.Host)),
		validation.Field(&p.MIMETypes, validation.Each(validation.Match(mimeTypeRegexp).Error("must be a MIME type"))),
	)
}

// Callback applies a Policy. It also counts the text it observes. A
// Callback serves one filter pass.
type Callback struct {
	policy    *Policy
	schemes   map[string]bool
	hosts     map[string]bool
	mimeTypes map[string]bool
	textBytes int
}

// New returns a Callback for p. If p is nil the default policy is used.
func New(p *Policy) *Callback {
	if p == nil {
		p = Default()
	}
	return &Callback{
		policy:    p,
		schemes:   toSet(p.Schemes),
		hosts:     toSet(p.Hosts),
		mimeTypes: toSet(p.MIMETypes),
	}
}

// ProcessURI implements the filters' boundary callback.
func (c *Callback) ProcessURI(uri, overrideMIMEType string) (string, bool) {
	if overrideMIMEType != "" && len(c.mimeTypes) > 0 && !c.mimeTypes[overrideMIMEType] {
		return "", false
	}
	// Control characters confuse URL parsers in browsers.
	uri = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, strings.TrimSpace(uri))

	u, err := url.Parse(uri)
	if err != nil {
		return "", false
	}
	if u.Scheme == "" && u.Host == "" {
		if !c.policy.AllowRelative || u.Opaque != "" {
			return "", false
		}
		return u.String(), true
	}
	if u.Scheme != "" && !c.schemes[strings.ToLower(u.Scheme)] {
		return "", false
	}
	if u.Scheme == "" && !c.policy.AllowRelative {
		return "", false
	}
	if u.Host != "" && len(c.hosts) > 0 && !c.hosts[strings.ToLower(u.Hostname())] {
		return "", false
	}
	if u.Host == "" && u.Opaque == "" && u.Scheme != "mailto" && u.Path == "" {
		return "", false
	}
	return u.String(), true
}

// AllowGetForms implements the filters' boundary callback.
func (c *Callback) AllowGetForms() bool {
	return c.policy.AllowGetForms
}

// AllowPostForms implements the filters' boundary callback.
func (c *Callback) AllowPostForms() bool {
	return c.policy.AllowPostForms
}

// ProcessForm vets a form action like any other URI.
func (c *Callback) ProcessForm(method, action string) (string, bool) {
	return c.ProcessURI(action, "")
}

// OnBaseHref implements the filters' boundary callback.
func (c *Callback) OnBaseHref(href string) (string, bool) {
	if !c.policy.AllowBaseHref {
		return "", false
	}
	return c.ProcessURI(href, "")
}

// OnText implements the filters' boundary callback.
func (c *Callback) OnText(text, containingTag string) {
	c.textBytes += len(text)
}

// TextBytes returns the number of bytes of text observed.
func (c *Callback) TextBytes() int {
	return c.textBytes
}

func toSet(s []string) map[string]bool {
	m := make(map[string]bool, len(s))
	for _, v := range s {
		m[v] = true
	}
	return m
}
