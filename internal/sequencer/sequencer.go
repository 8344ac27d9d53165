// Package sequencer wraps the single-threaded, non-reentrant orderbook.OrderBook
// behind a single-writer goroutine, so concurrent callers (an HTTP handler
// pool, in particular) can submit admission commands without racing on the
// book itself.
//
// One goroutine owns the book outright: every Add, Cancel and Modify
// command is stamped with a monotonically increasing sequence number as it
// is applied (read-only queries and GoodForDay expiry are not), and results
// are handed back synchronously to the caller plus fanned out to anything
// subscribed on ExecutionOut.
package sequencer

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/nathanyu/orderbook-engine/internal/domain"
	"github.com/nathanyu/orderbook-engine/internal/middleware"
	"github.com/nathanyu/orderbook-engine/internal/orderbook"
)

// CommandKind selects which OrderBook operation a command applies.
type CommandKind int

const (
	CommandAdd CommandKind = iota
	CommandCancel
	CommandModify
	commandQuery
	commandExpireGFD
	commandBook
)

// Command is one admission request submitted to the sequencer. Reply is
// buffered with capacity 1 so the single-writer loop never blocks handing
// a result back.
type Command struct {
	Kind CommandKind

	OrderType domain.OrderType
	ID        domain.OrderID
	Side      domain.Side
	Price     domain.Price
	Size      domain.Size
	Depth     int

	reply chan Result
}

// Result is what a Command produces: the sequence number stamped on this
// command and the trades (if any) the book generated applying it.
type Result struct {
	Seq    uint64
	Trades []domain.Trade

	// View and Found are populated only for a query command.
	View  orderbook.OrderView
	Found bool

	// Expired is populated only for an ExpireGoodForDay command: the ids
	// of the GoodForDay orders that were cancelled.
	Expired []domain.OrderID

	// Book is populated only for a book-snapshot command.
	Book orderbook.BookView
}

// Sequencer serializes admission commands into a single goroutine holding
// exclusive ownership of an *orderbook.OrderBook, stamping an inbound
// sequence number on each as it is applied and an outbound sequence number
// on each trade it produces.
type Sequencer struct {
	book *orderbook.OrderBook

	inboundSeq  atomic.Uint64
	outboundSeq atomic.Uint64

	commands chan Command

	// ExecutionOut receives every batch of trades produced by an applied
	// command, in application order. Buffered; when the channel is full the
	// new batch is dropped rather than stall the book.
	ExecutionOut chan Result

	done chan struct{}
}

// New constructs a Sequencer owning book. book must not be touched by any
// other goroutine once constructed here.
func New(book *orderbook.OrderBook, bufferSize int) *Sequencer {
	return &Sequencer{
		book:         book,
		commands:     make(chan Command, bufferSize),
		ExecutionOut: make(chan Result, bufferSize),
		done:         make(chan struct{}),
	}
}

// Start begins the single-writer loop in its own goroutine.
func (s *Sequencer) Start() {
	go s.run()
}

// Stop signals the loop to exit. It does not drain pending commands.
func (s *Sequencer) Stop() {
	close(s.done)
}

func (s *Sequencer) run() {
	log.Println("[sequencer] started")
	for {
		select {
		case cmd := <-s.commands:
			s.apply(cmd)
		case <-s.done:
			log.Println("[sequencer] stopped")
			return
		}
	}
}

func (s *Sequencer) apply(cmd Command) {
	if cmd.Kind == commandQuery {
		view, found := s.book.Order(cmd.ID)
		if cmd.reply != nil {
			cmd.reply <- Result{View: view, Found: found}
		}
		return
	}

	if cmd.Kind == commandBook {
		view := s.book.Book(cmd.Depth)
		if cmd.reply != nil {
			cmd.reply <- Result{Book: view}
		}
		return
	}

	if cmd.Kind == commandExpireGFD {
		ids := s.book.GoodForDayIDs()
		for _, id := range ids {
			s.book.Cancel(id)
		}
		if cmd.reply != nil {
			cmd.reply <- Result{Expired: ids}
		}
		return
	}

	seq := s.inboundSeq.Add(1)
	middleware.SequencerInboundSeq.Set(float64(seq))

	var trades []domain.Trade
	switch cmd.Kind {
	case CommandAdd:
		_, duplicate := s.book.Order(cmd.ID)
		trades = s.book.Add(cmd.OrderType, cmd.ID, cmd.Side, cmd.Price, cmd.Size)
		outcome := "rested_or_filled"
		if _, resting := s.book.Order(cmd.ID); duplicate || (!resting && len(trades) == 0) {
			outcome = "rejected_or_fully_transient"
		}
		middleware.OrdersAdmittedTotal.WithLabelValues(cmd.OrderType.String(), outcome).Inc()
	case CommandCancel:
		s.book.Cancel(cmd.ID)
	case CommandModify:
		trades = s.book.Modify(cmd.OrderType, cmd.ID, cmd.Side, cmd.Price, cmd.Size)
		middleware.OrdersAdmittedTotal.WithLabelValues(cmd.OrderType.String(), "modified").Inc()
	}

	for range trades {
		s.outboundSeq.Add(1)
		middleware.TradesExecutedTotal.Inc()
	}
	middleware.SequencerOutboundSeq.Set(float64(s.outboundSeq.Load()))
	middleware.OrderBookDepth.WithLabelValues(domain.Buy.String()).Set(float64(s.book.Depth(domain.Buy)))
	middleware.OrderBookDepth.WithLabelValues(domain.Sell.String()).Set(float64(s.book.Depth(domain.Sell)))

	result := Result{Seq: seq, Trades: trades}
	if cmd.reply != nil {
		cmd.reply <- result
	}

	if len(trades) > 0 {
		select {
		case s.ExecutionOut <- result:
		default:
			log.Println("[sequencer] WARN: execution output channel full, dropping batch")
		}
	}
}

// submit enqueues cmd and blocks for its result, respecting ctx
// cancellation on both the enqueue and the reply wait.
func (s *Sequencer) submit(ctx context.Context, cmd Command) (Result, error) {
	cmd.reply = make(chan Result, 1)
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	select {
	case res := <-cmd.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Add submits an admission command and waits for the book to apply it.
func (s *Sequencer) Add(ctx context.Context, orderType domain.OrderType, id domain.OrderID, side domain.Side, price domain.Price, size domain.Size) (Result, error) {
	return s.submit(ctx, Command{Kind: CommandAdd, OrderType: orderType, ID: id, Side: side, Price: price, Size: size})
}

// Cancel submits a cancellation command and waits for it to be applied.
func (s *Sequencer) Cancel(ctx context.Context, id domain.OrderID) (Result, error) {
	return s.submit(ctx, Command{Kind: CommandCancel, ID: id})
}

// Modify submits a modification command and waits for it to be applied.
func (s *Sequencer) Modify(ctx context.Context, orderType domain.OrderType, id domain.OrderID, side domain.Side, price domain.Price, size domain.Size) (Result, error) {
	return s.submit(ctx, Command{Kind: CommandModify, OrderType: orderType, ID: id, Side: side, Price: price, Size: size})
}

// Order returns a snapshot of a currently resting order, routed through the
// single-writer loop so it never races a concurrent Add/Cancel/Modify.
func (s *Sequencer) Order(ctx context.Context, id domain.OrderID) (orderbook.OrderView, bool, error) {
	res, err := s.submit(ctx, Command{Kind: commandQuery, ID: id})
	if err != nil {
		return orderbook.OrderView{}, false, err
	}
	return res.View, res.Found, nil
}

// ExpireGoodForDay cancels every currently resting GoodForDay order and
// returns their ids. The core keeps no wall clock; a caller (typically a
// daily ticker in cmd/server) decides when a day boundary has passed and
// calls this.
func (s *Sequencer) ExpireGoodForDay(ctx context.Context) ([]domain.OrderID, error) {
	res, err := s.submit(ctx, Command{Kind: commandExpireGFD})
	if err != nil {
		return nil, err
	}
	return res.Expired, nil
}

// Book returns a depth snapshot of the book, routed through the
// single-writer loop.
func (s *Sequencer) Book(ctx context.Context, depth int) (orderbook.BookView, error) {
	res, err := s.submit(ctx, Command{Kind: commandBook, Depth: depth})
	if err != nil {
		return orderbook.BookView{}, err
	}
	return res.Book, nil
}

// CurrentInboundSeq returns the count of Add, Cancel and Modify commands
// applied so far.
func (s *Sequencer) CurrentInboundSeq() uint64 { return s.inboundSeq.Load() }

// CurrentOutboundSeq returns the count of trades produced so far.
func (s *Sequencer) CurrentOutboundSeq() uint64 { return s.outboundSeq.Load() }
