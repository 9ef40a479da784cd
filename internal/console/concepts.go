package console

// Explainer produces the design-concepts text behind the `concepts`
// command. It is stateless; the app holds one by composition rather than
// mixing it into the app type itself.
type Explainer struct{}

// Explain returns the concepts write-up shown to the user.
func (Explainer) Explain() string {
	return `Design concepts used in this app:
- Composition: the app holds a registry, a task runner and this explainer
  as plain fields instead of inheriting behavior.
- Closed interface variants: both models implement one Pipeline contract
  {Load, Run, Info} and are dispatched by registry lookup.
- Encapsulation: adapter internals (engine handle, loaded flag) live behind
  unexported fields; callers only see ModelInfo snapshots.
- Lazy loading: heavy pipelines initialize on first Load, and Run loads
  implicitly on the default device when needed.
- Middleware over decorators: every task submission is wrapped with
  logging, timing and metrics at one choke point.
- Worker/inbox concurrency: each task runs on its own goroutine and reports
  through a FIFO inbox drained on a fixed tick by the UI-owning goroutine.`
}
