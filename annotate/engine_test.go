package annotate

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/buxback/gild/dom"
	"github.com/buxback/gild/item"
	"github.com/buxback/gild/ratesource"
)

func testEngine(t *testing.T, events *[]item.Event) *Engine {
	t.Helper()
	var sinks []Sink
	if events != nil {
		sinks = append(sinks, NewCallbackSink(func(_ context.Context, ev item.Event) error {
			*events = append(*events, ev)
			return nil
		}))
	}
	e := New(nil, FixedRates(ratesource.Default()), nil, sinks...)
	t.Cleanup(func() { e.Close() })
	return e
}

func eventsOfKind(events []item.Event, kind item.EventKind) []item.Event {
	var out []item.Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

const gridPage = `<html><body>
<div class="item-grid">
  <div class="item-card">
    <a href="/catalog/111/cool-hat"><img src="//t0.rbxcdn.com/a.png" width="150"></a>
    <span class="item-card-name">Cool Hat</span>
    <span class="text-robux">1,200</span>
  </div>
  <div class="item-card">
    <a href="/catalog/222/rare-hat"><img src="//t1.rbxcdn.com/b.png" width="150"></a>
    <span class="item-card-name">Limited Rare Hat</span>
    <span class="text-robux">900</span>
  </div>
  <div class="item-card">
    <a href="/catalog/333/cheap"><img src="//t2.rbxcdn.com/c.png" width="150"></a>
    <span class="text-robux">2</span>
  </div>
  <img src="//t3.rbxcdn.com/icon.png" width="28">
</div>
</body></html>`

func TestAnnotateSnapshot_Grid(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)

	report, err := e.AnnotateSnapshot(context.Background(),
		"https://www.roblox.com/catalog?Category=1", gridPage)
	if err != nil {
		t.Fatal(err)
	}

	// Item 111: 1,200 × 0.30 = 360. Item 222 is excluded by the
	// "limited" keyword. Item 333 has no in-bounds price.
	annotated := eventsOfKind(report.Events, item.EventAnnotated)
	if len(annotated) != 1 {
		t.Fatalf("got %d annotated events, want 1: %+v", len(annotated), report.Events)
	}
	ev := annotated[0]
	if ev.Item == nil || ev.Item.ID != "111" {
		t.Fatalf("annotated item: %+v", ev.Item)
	}
	if ev.Item.Reward == nil || *ev.Item.Reward != 360 {
		t.Fatalf("reward: got %v, want 360", ev.Item.Reward)
	}
	if ev.Artifact == nil || ev.Artifact.Kind != item.ArtifactBadge {
		t.Fatalf("artifact: %+v", ev.Artifact)
	}
	if ev.Artifact.ParentXPath == "" || !strings.HasPrefix(ev.Artifact.ParentXPath, "/html") {
		t.Fatalf("artifact xpath: %q", ev.Artifact.ParentXPath)
	}
	if !strings.Contains(ev.Artifact.HTML, "+360") {
		t.Fatalf("artifact html: %s", ev.Artifact.HTML)
	}
	if ev.ID == "" || ev.Seq == 0 || ev.Timestamp == 0 {
		t.Fatalf("event envelope incomplete: %+v", ev)
	}

	if !strings.Contains(report.HTML, BadgeClass) {
		t.Fatal("badge missing from rendered output")
	}
	// The excluded and unpriced cards must carry no badge.
	if strings.Count(report.HTML, BadgeWrapperClass) != 1 {
		t.Fatal("unexpected extra badges")
	}

	// The sink saw the same events the report captured.
	if len(events) != len(report.Events) {
		t.Fatalf("sink saw %d events, report has %d", len(events), len(report.Events))
	}

	stats := e.Stats()
	if stats.Badges != 1 || stats.Excluded != 1 {
		t.Fatalf("stats: %+v", stats)
	}
}

func TestScanAll_Idempotent(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)

	doc, err := dom.ParseString(gridPage)
	if err != nil {
		t.Fatal(err)
	}
	e.doc = doc
	e.pageURL = "https://www.roblox.com/catalog"

	ctx := context.Background()
	e.scanAll(ctx)
	e.scanAll(ctx)
	e.scanAll(ctx)

	if got := len(eventsOfKind(events, item.EventAnnotated)); got != 1 {
		t.Fatalf("rescans duplicated work: %d annotated events", got)
	}
	out, _ := doc.Render()
	if strings.Count(out, BadgeWrapperClass) != 1 {
		t.Fatal("duplicate badge in tree")
	}
}

const detailPage = `<html><head><title>Cool Hat - Roblox</title></head><body>
<h1 class="item-name-container">Cool Hat</h1>
<div class="price-row-container"><span class="text-robux-lg">1,200</span></div>
<div id="purchase"><button>Buy</button></div>
</body></html>`

func TestAnnotateSnapshot_Detail(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)

	report, err := e.AnnotateSnapshot(context.Background(),
		"https://www.roblox.com/catalog/42/cool-hat", detailPage)
	if err != nil {
		t.Fatal(err)
	}

	annotated := eventsOfKind(report.Events, item.EventAnnotated)
	if len(annotated) != 1 {
		t.Fatalf("got %d annotated events: %+v", len(annotated), report.Events)
	}
	ev := annotated[0]
	if ev.Artifact.Kind != item.ArtifactButton {
		t.Fatalf("artifact kind: %s", ev.Artifact.Kind)
	}
	if ev.Item.ID != "42" || ev.Item.Name != "Cool Hat" {
		t.Fatalf("item: %+v", ev.Item)
	}
	if ev.Item.Price == nil || *ev.Item.Price != 1200 {
		t.Fatalf("price: %v", ev.Item.Price)
	}
	if !strings.Contains(report.HTML, ButtonID) || !strings.Contains(report.HTML, "Buy with BuxBack") {
		t.Fatal("button missing from output")
	}
	if !strings.Contains(report.HTML, "+360 Robux back") {
		t.Fatal("reward sub-label missing")
	}
}

func TestAnnotateSnapshot_OwnedDetail(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)

	owned := `<html><body>
		<h1>Cool Hat</h1>
		<div class="PurchaseButton-root"><button>Owned</button></div>
	</body></html>`

	report, err := e.AnnotateSnapshot(context.Background(),
		"https://www.roblox.com/catalog/42/cool-hat", owned)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(report.HTML, ButtonID) {
		t.Fatal("button injected on an owned item")
	}
	if got := len(eventsOfKind(report.Events, item.EventAnnotated)); got != 0 {
		t.Fatalf("annotated events on owned item: %d", got)
	}
}

func TestRouteSwap(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	// One SPA document serving both routes, as hydration would.
	doc, err := dom.ParseString(`<html><body>
		<h1>Cool Hat</h1>
		<div class="price-row-container"><span class="text-robux">500</span></div>
		<div id="purchase"><button>Buy</button></div>
	</body></html>`)
	if err != nil {
		t.Fatal(err)
	}
	e.doc = doc

	e.urlChanged(ctx, "https://www.roblox.com/catalog/111/cool-hat")
	if got := e.inj.ExistingButtonItem(doc); got != "111" {
		t.Fatalf("button item after first route: %q", got)
	}

	e.urlChanged(ctx, "https://www.roblox.com/game-pass/222/fly")
	if got := e.inj.ExistingButtonItem(doc); got != "222" {
		t.Fatalf("button item after swap: %q", got)
	}
	if len(doc.QueryAll("#"+ButtonID)) != 1 {
		t.Fatal("stale button survived the swap")
	}
	if len(eventsOfKind(events, item.EventCleanup)) == 0 {
		t.Fatal("no cleanup event for the removed button")
	}

	// Leaving detail pages entirely removes the button.
	e.urlChanged(ctx, "https://www.roblox.com/catalog")
	if got := e.inj.ExistingButtonItem(doc); got != "" {
		t.Fatalf("button survived leaving detail routes: %q", got)
	}
}

func TestURLChange_ExactEquality(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	doc, _ := dom.ParseString(`<html><body><button>Buy</button></body></html>`)
	e.doc = doc

	e.urlChanged(ctx, "https://www.roblox.com/catalog/111/x")
	n := len(events)

	// Same URL again is not a transition.
	e.urlChanged(ctx, "https://www.roblox.com/catalog/111/x")
	if len(events) != n {
		t.Fatal("same-URL call produced events")
	}

	// A query change is a transition.
	e.urlChanged(ctx, "https://www.roblox.com/catalog/111/x?ref=1")
	if e.pageURL != "https://www.roblox.com/catalog/111/x?ref=1" {
		t.Fatal("query change not treated as a transition")
	}
}

func TestRetryGuard(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	doc, _ := dom.ParseString(`<html><body><button>Buy</button></body></html>`)
	e.doc = doc
	e.detailItemID = "999"

	// A retry for a route we have left is dropped.
	e.handleRetry(ctx, "111")
	if len(events) != 0 {
		t.Fatalf("stale retry did work: %+v", events)
	}

	// A matching retry inserts the button.
	e.handleRetry(ctx, "999")
	if got := e.inj.ExistingButtonItem(e.doc); got != "999" {
		t.Fatalf("retry did not insert: %q", got)
	}
}

func TestBackstopRecreatesButton(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	doc, _ := dom.ParseString(`<html><body><button>Buy</button></body></html>`)
	e.doc = doc
	e.urlChanged(ctx, "https://www.roblox.com/catalog/42/x")
	if e.inj.ExistingButtonItem(doc) != "42" {
		t.Fatal("setup: no button")
	}

	// Hydration wipes the page. The next mutation snapshot carries the
	// same URL but no button; the backstop must put it back.
	fresh, _ := dom.ParseString(`<html><body><button>Buy</button></body></html>`)
	e.lastBackstop = time.Time{}
	e.handleMutation(ctx, MutationSignal("https://www.roblox.com/catalog/42/x", fresh))

	if got := e.inj.ExistingButtonItem(fresh); got != "42" {
		t.Fatalf("button not recreated after wipe: %q", got)
	}
}

const gamePage = `<html><body>
<div class="game-detail">
  <div class="store-card">
    <div class="store-card-caption"><span class="item-name">Fly Pass</span></div>
    <a href="/game-pass/777/fly">Fly</a>
    <button class="PurchaseButton" data-item-id="777">Buy for 100</button>
  </div>
  <div class="store-card">
    <div class="store-card-caption"><span class="item-name">No ID Pass</span></div>
    <button class="PurchaseButton">Buy</button>
  </div>
</div>
</body></html>`

func TestAnnotateSnapshot_GamePasses(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)

	report, err := e.AnnotateSnapshot(context.Background(),
		"https://www.roblox.com/games/999/place", gamePage)
	if err != nil {
		t.Fatal(err)
	}

	annotated := eventsOfKind(report.Events, item.EventAnnotated)
	if len(annotated) != 1 {
		t.Fatalf("got %d annotated events: %+v", len(annotated), report.Events)
	}
	ev := annotated[0]
	if ev.Item.ID != "777" || ev.Item.Category != item.CategoryGamepass {
		t.Fatalf("item: %+v", ev.Item)
	}
	if ev.Item.Price == nil || *ev.Item.Price != 100 {
		t.Fatalf("price: %v", ev.Item.Price)
	}
	if ev.Item.Reward == nil || *ev.Item.Reward != 5 {
		t.Fatalf("reward: %v", ev.Item.Reward)
	}
	if !strings.Contains(report.HTML, PassButtonClass) {
		t.Fatal("pass button missing")
	}
}

func TestAnnotateSnapshot_RepeatCallsAreIndependent(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	// One-shot reports do not share dedup state: the same page
	// annotated twice through one engine gets its pass button both
	// times.
	for i := 0; i < 2; i++ {
		report, err := e.AnnotateSnapshot(ctx,
			"https://www.roblox.com/games/999/place", gamePage)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(report.HTML, PassButtonClass) {
			t.Fatalf("call %d: pass button missing", i+1)
		}
	}
}

func TestPassScan_SessionDedup(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	doc, _ := dom.ParseString(gamePage)
	e.doc = doc
	e.pageURL = "https://www.roblox.com/games/999/place"
	e.scanPasses(ctx)

	if _, done := e.processedPasses["777"]; !done {
		t.Fatal("pass not recorded as processed")
	}

	// A re-render drops the injected button; the session set still
	// blocks a duplicate.
	fresh, _ := dom.ParseString(gamePage)
	e.doc = fresh
	e.scanPasses(ctx)
	if fresh.Query("."+PassButtonClass) != nil {
		t.Fatal("re-rendered card annotated twice in one session")
	}
}

func TestStoreRescanSignal(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	doc, _ := dom.ParseString(gamePage)
	e.doc = doc
	e.pageURL = "https://www.roblox.com/games/999/place#store"

	e.handle(ctx, Signal{Kind: signalStoreRescan})
	if doc.Query("."+PassButtonClass) == nil {
		t.Fatal("store rescan did not annotate pass cards")
	}
}

func TestModalLifecycle(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	doc, _ := dom.ParseString(detailPage)
	e.doc = doc
	e.urlChanged(ctx, "https://www.roblox.com/catalog/42/cool-hat")

	e.openModal(ctx, "")
	if e.inj.ModalNode(doc) == nil {
		t.Fatal("modal not opened")
	}
	opened := eventsOfKind(events, item.EventModalOpened)
	if len(opened) != 1 {
		t.Fatalf("modal_opened events: %d", len(opened))
	}
	if opened[0].Artifact == nil || !strings.Contains(opened[0].Artifact.HTML, "roblox://") {
		t.Fatal("detail modal carries no deep link")
	}

	// Copy flips the label and emits.
	var copied []string
	e.SetClipboard(func(s string) error { copied = append(copied, s); return nil })
	e.handleCopy(ctx)
	if len(copied) != 1 || copied[0] != "42" {
		t.Fatalf("clipboard writes: %v", copied)
	}
	btn := e.inj.CopyButton(doc)
	if got := strings.TrimSpace(dom.Text(btn)); got != "Copied!" {
		t.Fatalf("copy label: %q", got)
	}
	if len(eventsOfKind(events, item.EventCopied)) != 1 {
		t.Fatal("no copied event")
	}

	// Revert with a stale token is ignored; the current token reverts.
	e.handleCopyRevert(e.copyToken - 1)
	if got := strings.TrimSpace(dom.Text(e.inj.CopyButton(doc))); got != "Copied!" {
		t.Fatalf("stale revert fired: %q", got)
	}
	e.handleCopyRevert(e.copyToken)
	if got := strings.TrimSpace(dom.Text(e.inj.CopyButton(doc))); got != "Copy" {
		t.Fatalf("revert failed: %q", got)
	}

	// Dismiss removes the modal and emits.
	e.dismissModal(ctx)
	if e.inj.ModalNode(doc) != nil {
		t.Fatal("modal survived dismiss")
	}
	if len(eventsOfKind(events, item.EventModalDismissed)) != 1 {
		t.Fatal("no modal_dismissed event")
	}

	// Dismissing again is a no-op.
	e.dismissModal(ctx)
	if len(eventsOfKind(events, item.EventModalDismissed)) != 1 {
		t.Fatal("double dismiss emitted twice")
	}
}

func TestModal_PassLookup(t *testing.T) {
	var events []item.Event
	e := testEngine(t, &events)
	ctx := context.Background()

	doc, _ := dom.ParseString(gamePage)
	e.doc = doc
	e.pageURL = "https://www.roblox.com/games/999/place"
	e.scanPasses(ctx)

	e.openModal(ctx, "777")
	modal := e.inj.ModalNode(doc)
	if modal == nil {
		t.Fatal("pass modal not opened")
	}
	body, _ := dom.RenderNode(modal)
	if !strings.Contains(body, "Fly Pass") {
		t.Fatal("pass name missing from modal")
	}
	// Pass modals have no deep link, only the copyable id.
	if strings.Contains(body, "roblox://") {
		t.Fatal("pass modal has a deep link")
	}
	if !strings.Contains(body, `data-copy="777"`) {
		t.Fatal("copyable id missing")
	}
	// The pass-listing surface shows the cashback percentage.
	if !strings.Contains(body, "Your Cashback (5%)") {
		t.Fatal("rate percentage missing from pass modal")
	}

	// Unknown ids do nothing.
	e.dismissModal(ctx)
	e.openModal(ctx, "31337")
	if e.inj.ModalNode(doc) != nil {
		t.Fatal("modal opened for unknown pass")
	}
}

func TestModal_GamepassDetailHidesRate(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	doc, _ := dom.ParseString(`<html><body>
    <h1>Fly Pass</h1>
    <div class="price-row-container"><span class="text-robux-lg">100</span></div>
    <button class="PurchaseButton">Buy</button>
  </body></html>`)
	e.doc = doc
	e.urlChanged(ctx, "https://www.roblox.com/game-pass/777/fly")

	e.openModal(ctx, "")
	modal := e.inj.ModalNode(doc)
	if modal == nil {
		t.Fatal("modal not opened")
	}
	// A game pass opened from its own detail page shows the flat amount
	// only; the percentage belongs to the pass-listing surface.
	body, _ := dom.RenderNode(modal)
	if !strings.Contains(body, ">Your Cashback<") {
		t.Fatalf("cashback row label missing: %s", body)
	}
	if strings.Contains(body, "Your Cashback (") {
		t.Fatalf("detail modal shows a rate percentage: %s", body)
	}
	if !strings.Contains(body, "+5 Robux") {
		t.Fatal("cashback amount missing")
	}
}

func TestRunLoop_DrainsSignals(t *testing.T) {
	evCh := make(chan item.Event, 16)
	e := New(nil, FixedRates(ratesource.Default()), nil,
		NewCallbackSink(func(_ context.Context, ev item.Event) error {
			evCh <- ev
			return nil
		}))
	t.Cleanup(func() { e.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	doc, _ := dom.ParseString(gridPage)
	e.Post(MutationSignal("https://www.roblox.com/catalog", doc))

	select {
	case ev := <-evCh:
		if ev.Kind != item.EventAnnotated {
			t.Fatalf("event kind: %s", ev.Kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event from run loop")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestScrollThrottle(t *testing.T) {
	e := testEngine(t, nil)
	ctx := context.Background()

	doc, _ := dom.ParseString(gridPage)
	e.doc = doc
	e.pageURL = "https://www.roblox.com/catalog"

	// Burst far past the limiter. Scans must be capped, not one per
	// signal.
	for i := 0; i < 100; i++ {
		e.handleScroll(ctx)
	}
	stats := e.Stats()
	if stats.Throttled == 0 {
		t.Fatal("no scroll signals throttled")
	}
	if stats.Scans >= 100 {
		t.Fatalf("every scroll scanned: %d", stats.Scans)
	}
}

func TestPost_DropsWhenFull(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SignalBuffer = 1
	e := New(cfg, FixedRates(ratesource.Default()), nil)
	t.Cleanup(func() { e.Close() })

	// Nothing draining: the second post must drop, not block.
	e.Post(ScrollSignal())
	done := make(chan struct{})
	go func() {
		e.Post(ScrollSignal())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Post blocked on a full channel")
	}
	if e.Stats().Dropped == 0 {
		t.Fatal("drop not counted")
	}
}
