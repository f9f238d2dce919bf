package plugin

// Option configures a hook at registration time.
type Option func(*hookOptions)

type hookOptions struct {
	name        string
	params      []string
	mode        Mode
	exclusive   bool
	runFirst    bool
	permissions []string
	doc         string
	autoHelp    bool
}

func defaultHookOptions() hookOptions {
	return hookOptions{mode: ModeBlocking, autoHelp: true}
}

// Name sets the function name used in descriptions and exclusivity keys.
func Name(name string) Option {
	return func(o *hookOptions) { o.name = name }
}

// Needs declares the event capabilities the hook wants bound, in order.
func Needs(params ...string) Option {
	return func(o *hookOptions) { o.params = append(o.params, params...) }
}

// Cooperative runs the hook inline on the dispatching goroutine instead of
// the worker pool.
func Cooperative() Option {
	return func(o *hookOptions) { o.mode = ModeCooperative }
}

// Exclusive allows only one concurrent execution of the hook.
func Exclusive() Option {
	return func(o *hookOptions) { o.exclusive = true }
}

// RunFirst launches the hook before ordinary hooks for the same event.
func RunFirst() Option {
	return func(o *hookOptions) { o.runFirst = true }
}

// Permissions lists permissions of which the sender needs at least one.
func Permissions(perms ...string) Option {
	return func(o *hookOptions) { o.permissions = append(o.permissions, perms...) }
}

// Doc sets a command's usage text.
func Doc(doc string) Option {
	return func(o *hookOptions) { o.doc = doc }
}

// AutoHelp controls whether a command invoked without text replies with its
// usage text instead of running. Enabled by default.
func AutoHelp(enabled bool) Option {
	return func(o *hookOptions) { o.autoHelp = enabled }
}
