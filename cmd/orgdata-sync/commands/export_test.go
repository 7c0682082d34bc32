package commands

type (
	NewFetcher   = newFetcher
	NewWriter    = newWriter
	NewPublisher = newPublisher
)

// SetArgs sets the arguments for the command.
func (a *App) SetArgs(args []string) {
	a.cmd.SetArgs(args)
}

// WithNewFetcher sets the fetcher constructor for the app.
func WithNewFetcher(nf NewFetcher) Options {
	return func(o *options) {
		o.newFetcher = nf
	}
}

// WithNewWriter sets the data writer constructor for the app.
func WithNewWriter(nw NewWriter) Options {
	return func(o *options) {
		o.newWriter = nw
	}
}

// WithNewPublisher sets the publisher constructor for the app.
func WithNewPublisher(np NewPublisher) Options {
	return func(o *options) {
		o.newPublisher = np
	}
}
