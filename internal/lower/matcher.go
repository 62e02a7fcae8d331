package lower

// CallMatcher decides whether a call's evaluation must be hoisted out of
// expression position into a preceding statement. Frontends mark callees
// whose bodies get inlined or otherwise expanded into statements later in
// the pipeline; every such call behaves like a statement-shaped construct
// for decomposition purposes.
type CallMatcher interface {
	Match(callee string) bool
}
