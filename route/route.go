package route

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	ErrNoRoute      = errors.New("no route matches")
	ErrUnknownRoute = errors.New("unknown route name")
	ErrInvalidTable = errors.New("invalid route table")
)

// CatchAll is the pattern matching every path. The "/:pathMatch(.*)*" form is
// accepted as an alias.
const (
	CatchAll      = "*"
	catchAllAlias = "/:pathMatch(.*)*"
)

// Meta is the per-route metadata consulted by the guard.
type Meta struct {
	Title        string `yaml:"title"`
	RequiresAuth bool   `yaml:"requires_auth"`
}

// Descriptor is one static route.
type Descriptor struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
	Meta Meta   `yaml:"meta"`
}

// Match is a resolved location.
type Match struct {
	Route  Descriptor
	Path   string
	Params map[string]string
	Query  url.Values
	// FullPath is Path plus the encoded query, the value carried in the
	// login redirect.
	FullPath string
}

type compiled struct {
	desc     Descriptor
	segments []string
	catchAll bool
}

// Table resolves paths against an ordered route list.
type Table struct {
	routes []compiled
	byName map[string]int
}

// NewTable validates routes and builds a Table. Names must be unique;
// unnamed routes are allowed.
func NewTable(routes []Descriptor) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(routes))}
	for i, d := range routes {
		if d.Path == "" {
			return nil, fmt.Errorf("%w: route %d has no path", ErrInvalidTable, i)
		}
		c := compiled{desc: d}
		if d.Path == CatchAll || d.Path == catchAllAlias {
			c.catchAll = true
		} else {
			if !strings.HasPrefix(d.Path, "/") {
				return nil, fmt.Errorf("%w: path %q must be absolute", ErrInvalidTable, d.Path)
			}
			c.segments = split(d.Path)
			for _, s := range c.segments {
				if s == ":" {
					return nil, fmt.Errorf("%w: empty parameter in %q", ErrInvalidTable, d.Path)
				}
			}
		}
		if d.Name != "" {
			if _, dup := t.byName[d.Name]; dup {
				return nil, fmt.Errorf("%w: duplicate name %q", ErrInvalidTable, d.Name)
			}
			t.byName[d.Name] = i
		}
		t.routes = append(t.routes, c)
	}
	return t, nil
}

type tableFile struct {
	Routes []Descriptor `yaml:"routes"`
}

// ParseTable builds a Table from YAML of the form `routes: [...]`.
func ParseTable(data []byte) (*Table, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if len(f.Routes) == 0 {
		return nil, fmt.Errorf("%w: no routes", ErrInvalidTable)
	}
	return NewTable(f.Routes)
}

// LoadTable reads a YAML route table from path.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTable(data)
}

// Routes returns the descriptors in declaration order.
func (t *Table) Routes() []Descriptor {
	out := make([]Descriptor, len(t.routes))
	for i, c := range t.routes {
		out[i] = c.desc
	}
	return out
}

// ByName returns the named descriptor.
func (t *Table) ByName(name string) (Descriptor, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Descriptor{}, false
	}
	return t.routes[i].desc, true
}

// PathFor builds the concrete path of a named route.
func (t *Table) PathFor(name string, params map[string]string) (string, error) {
	i, ok := t.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	c := t.routes[i]
	if c.catchAll {
		return "", fmt.Errorf("route %q has no concrete path", name)
	}
	parts := make([]string, len(c.segments))
	for j, seg := range c.segments {
		if strings.HasPrefix(seg, ":") {
			v, ok := params[seg[1:]]
			if !ok || v == "" {
				return "", fmt.Errorf("route %q: missing param %q", name, seg[1:])
			}
			parts[j] = url.PathEscape(v)
			continue
		}
		parts[j] = seg
	}
	return "/" + strings.Join(parts, "/"), nil
}

// Resolve matches target, a path with optional query. Static segments beat
// parameters; ties go to the earlier route. The catch-all only wins when
// nothing else matches.
func (t *Table) Resolve(target string) (Match, error) {
	u, err := url.Parse(target)
	if err != nil {
		return Match{}, fmt.Errorf("%w: %v", ErrNoRoute, err)
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	segs := split(path)

	best, bestScore := -1, -1
	var bestParams map[string]string
	for i, c := range t.routes {
		score, params, ok := c.match(segs)
		if !ok || score <= bestScore {
			continue
		}
		best, bestScore, bestParams = i, score, params
	}
	if best < 0 {
		return Match{}, fmt.Errorf("%w: %s", ErrNoRoute, path)
	}

	query := u.Query()
	full := path
	if len(query) > 0 {
		full += "?" + query.Encode()
	}
	return Match{
		Route:    t.routes[best].desc,
		Path:     path,
		Params:   bestParams,
		Query:    query,
		FullPath: full,
	}, nil
}

func (c compiled) match(segs []string) (int, map[string]string, bool) {
	if c.catchAll {
		return 0, nil, true
	}
	if len(segs) != len(c.segments) {
		return 0, nil, false
	}
	score := 1
	var params map[string]string
	for i, pat := range c.segments {
		if strings.HasPrefix(pat, ":") {
			if params == nil {
				params = make(map[string]string, 2)
			}
			params[pat[1:]] = segs[i]
			score++
			continue
		}
		if pat != segs[i] {
			return 0, nil, false
		}
		score += 2
	}
	return score, params, true
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
