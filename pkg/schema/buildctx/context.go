// Package buildctx implements the builder context (C6): the process-scoped
// state shared across one compile — the table-alias stack, the link
// registry, and the list of hoisted filters.
package buildctx

import "strings"

// LinkEntry is one registered variant in the link registry: the join
// alias pair for a verb, its compiled inner filter SQL (if not hoisted),
// and a nested sub-registry for links registered while compiling this
// link's own inner schema.
type LinkEntry struct {
	Verb            string
	JoinAlias       string
	LinksAlias      string
	StackedLinkType string
	InnerFilterSQL  string
	Nested          *Context
}

// Context is shared across exactly one compile. Do not cache across
// compiles: link aliases are path-dependent on the stack at the moment
// of registration.
type Context struct {
	aliasStack []string
	registry   map[string][]*LinkEntry
	order      []*LinkEntry
	hoisted    []string
	linkCount  int
	aliasSeq   int

	// payloads carries opaque per-verb sidecar data (the compiler's own
	// *project.Projection for that verb's linked schema) so the link
	// expansion engine can build each link's payload projection without
	// this package importing the project package back.
	payloads map[string]any
}

// New returns a fresh context rooted at the given table alias.
func New(rootAlias string) *Context {
	return &Context{
		aliasStack: []string{rootAlias},
		registry:   make(map[string][]*LinkEntry),
		payloads:   make(map[string]any),
	}
}

// SetLinkPayload stashes an opaque payload against a verb name.
func (c *Context) SetLinkPayload(verb string, payload any) {
	c.payloads[verb] = payload
}

// LinkPayload retrieves a previously stashed payload for a verb name.
func (c *Context) LinkPayload(verb string) (any, bool) {
	v, ok := c.payloads[verb]
	return v, ok
}

// PushAlias pushes a new current table alias, returning a pop function.
func (c *Context) PushAlias(alias string) (pop func()) {
	c.aliasStack = append(c.aliasStack, alias)
	depth := len(c.aliasStack)
	return func() {
		if len(c.aliasStack) >= depth {
			c.aliasStack = c.aliasStack[:depth-1]
		}
	}
}

// CurrentAlias returns the table alias currently at the top of the stack.
func (c *Context) CurrentAlias() string {
	if len(c.aliasStack) == 0 {
		return ""
	}
	return c.aliasStack[len(c.aliasStack)-1]
}

// StackPath returns the escaped stack path used to derive deterministic
// link/join aliases ("links@/<stack>", "join@/<stack>"); '/' and '\' in
// each segment are escaped so the path has no ambiguity.
func (c *Context) StackPath() string {
	escaped := make([]string, len(c.aliasStack))
	for i, s := range c.aliasStack {
		escaped[i] = escapeSegment(s)
	}
	return strings.Join(escaped, "/")
}

func escapeSegment(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `/`, `\/`)
	return s
}

// NextAliasSeq returns a monotonically increasing integer unique within
// this context, used to disambiguate multiple links registered at the
// same stack path (sibling $$links entries under one verb).
func (c *Context) NextAliasSeq() int {
	c.aliasSeq++
	return c.aliasSeq
}

// RegisterLink records a new link variant at the current stack position
// and returns its deterministic alias pair plus a nested sub-context for
// compiling the link's inner schema. The nested context is rooted at the
// join alias, so this context's alias stack is left unchanged.
func (c *Context) RegisterLink(verb string) *LinkEntry {
	seq := c.NextAliasSeq()
	stack := c.StackPath()
	entry := &LinkEntry{
		Verb:       verb,
		LinksAlias: "links@/" + stack + "/" + verbToken(verb, seq),
		JoinAlias:  "join@/" + stack + "/" + verbToken(verb, seq),
		Nested:     New("join@/" + stack + "/" + verbToken(verb, seq)),
	}
	c.registry[verb] = append(c.registry[verb], entry)
	c.order = append(c.order, entry)
	c.linkCount++
	return entry
}

func verbToken(verb string, seq int) string {
	return escapeSegment(verb) + "#" + itoa(seq)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// LinksForVerb returns every registered entry for a verb, in registration order.
func (c *Context) LinksForVerb(verb string) []*LinkEntry {
	return c.registry[verb]
}

// AllLinks returns every registered link entry across all verbs, keyed by verb.
func (c *Context) AllLinks() map[string][]*LinkEntry {
	return c.registry
}

// AllEntries returns every link entry registered directly against this
// context, in registration order. Unlike AllLinks, iteration order is
// deterministic, which matters when a caller must join every registered
// entry into a single query rather than just look one verb up.
func (c *Context) AllEntries() []*LinkEntry {
	return c.order
}

// LinkCount returns how many links have been registered directly against
// this context. filter.Link.Render compares it before and after rendering
// a link's inner filter to detect new sub-links, and linkexpand checks it
// for zero.
func (c *Context) LinkCount() int {
	return c.linkCount
}

// Hoist lifts a SQL string out of a per-link join condition into the
// outer WHERE clause, used when a link's own inner compile itself
// registered sub-links (to avoid circular join dependencies).
func (c *Context) Hoist(sql string) {
	if sql == "" {
		return
	}
	c.hoisted = append(c.hoisted, sql)
}

// HoistedFilters returns every filter lifted via Hoist, in order.
func (c *Context) HoistedFilters() []string {
	return c.hoisted
}

// HoistedWhere conjoins the root filter with every hoisted filter,
// matching "WHERE filter AND (hoisted1 AND hoisted2 …)".
func HoistedWhere(rootFilter string, hoisted []string) string {
	if len(hoisted) == 0 {
		return rootFilter
	}
	joined := strings.Join(hoisted, " AND ")
	if rootFilter == "" {
		return joined
	}
	return rootFilter + " AND (" + joined + ")"
}
