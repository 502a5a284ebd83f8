package annotate

import (
	"github.com/buxback/gild/dom"
)

// SignalKind discriminates engine input signals.
type SignalKind string

const (
	// SignalMutation carries a fresh DOM snapshot. URL is the page URL
	// at capture time and doubles as the backstop navigation check.
	SignalMutation SignalKind = "mutation"
	// SignalScroll requests a grid rescan of the current snapshot.
	SignalScroll SignalKind = "scroll"
	// SignalNavigated reports an SPA route change.
	SignalNavigated SignalKind = "navigated"
	// SignalOpenModal asks for the purchase modal of an item.
	SignalOpenModal SignalKind = "open_modal"
	// SignalDismissModal closes the purchase modal.
	SignalDismissModal SignalKind = "dismiss_modal"
	// SignalCopy reports a click on the modal copy button.
	SignalCopy SignalKind = "copy"

	// Internal signals, produced by engine timers.
	signalRetry       SignalKind = "retry"
	signalNavSettled  SignalKind = "nav_settled"
	signalCopyRevert  SignalKind = "copy_revert"
	signalStoreRescan SignalKind = "store_rescan"
)

// Signal is one engine input. All session state mutation happens in
// response to signals, on the Run goroutine.
type Signal struct {
	Kind SignalKind
	URL  string
	Doc  *dom.Document

	// ItemID targets open_modal and guards retry signals against
	// route changes between schedule and delivery.
	ItemID string

	// token guards copy_revert against a newer copy click.
	token uint64
}

// MutationSignal builds a snapshot signal. url may be empty when the
// producer knows the URL has not changed.
func MutationSignal(url string, doc *dom.Document) Signal {
	return Signal{Kind: SignalMutation, URL: url, Doc: doc}
}

// NavigatedSignal builds a route-change signal.
func NavigatedSignal(url string) Signal {
	return Signal{Kind: SignalNavigated, URL: url}
}

// ScrollSignal builds a scroll signal.
func ScrollSignal() Signal {
	return Signal{Kind: SignalScroll}
}
