package job_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketbrief/internal/job"
	"marketbrief/internal/notify"
	"marketbrief/internal/quote"
	"marketbrief/internal/report"
	"marketbrief/internal/schedule"
	"marketbrief/internal/state"
)

type resolverFunc func(ctx context.Context, ins []quote.Instrument) []quote.Quote

func (f resolverFunc) ResolveInstruments(ctx context.Context, ins []quote.Instrument) []quote.Quote {
	return f(ctx, ins)
}

func ptr(v float64) *float64 { return &v }

var (
	monday   = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)
	saturday = time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)
	// Juneteenth, a Wednesday.
	holiday = time.Date(2024, 6, 19, 13, 30, 0, 0, time.UTC)
	window   = schedule.Window{Start: schedule.Clock{Hour: 9}, End: schedule.Clock{Hour: 15, Minute: 25}}
)

func stubResolver() job.Resolver {
	return resolverFunc(func(_ context.Context, ins []quote.Instrument) []quote.Quote {
		out := make([]quote.Quote, len(ins))
		for i, in := range ins {
			out[i] = quote.Quote{Symbol: in.Symbol, Label: in.Label}
			if in.Symbol == "ES=F" {
				out[i].Current = ptr(4500.25)
				out[i].Reference = ptr(4480.0)
				out[i].Provenance = []string{quote.TagSnapshotLive, quote.TagSnapshotPrevClose}
			}
		}
		return out
	})
}

func calendar(t *testing.T) *schedule.Calendar {
	t.Helper()
	c, err := schedule.NewCalendar(nil)
	require.NoError(t, err)
	return c
}

func newPremarket(t *testing.T, now time.Time) (*job.Premarket, *notify.MockNotifier, *state.MockStore) {
	ctrl := gomock.NewController(t)
	n := notify.NewMockNotifier(ctrl)
	s := state.NewMockStore(ctrl)
	return &job.Premarket{
		Resolver:  stubResolver(),
		Notifier:  n,
		Store:     s,
		Formatter: report.NewFormatter("en"),
		Futures:   quote.Instruments("ES=F"),
		Watchlist: quote.Instruments("AAPL"),
		Window:    window,
		Calendar:  calendar(t),
		Location:  time.UTC,
		MaxLen:    3900,
		Now:       func() time.Time { return now },
	}, n, s
}

func TestPremarket_Run_Sends(t *testing.T) {
	t.Parallel()

	// Arrange: a weekday inside the window with no marker
	p, n, s := newPremarket(t, monday)
	var sent string
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, nil)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, text string) error {
		sent = text
		return nil
	})
	s.EXPECT().MarkSent(gomock.Any(), job.PremarketJob, monday).Return(nil)

	// Act: run the job
	err := p.Run(t.Context(), job.Options{})

	// Assert: one chunk with the formatted futures line and a marker written
	require.NoError(t, err)
	require.Contains(t, sent, "Premarket USA · 10/06/2024 09:30 UTC")
	require.Contains(t, sent, "ES=F           4,500.25   ▲0.45%")
	require.Contains(t, sent, "AAPL")
	require.Contains(t, sent, report.Placeholder)
}

func TestPremarket_Run_Skips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		now    time.Time
		marked bool
	}{
		{name: "weekend", now: saturday},
		{name: "market holiday", now: holiday},
		{name: "before window", now: time.Date(2024, 6, 10, 8, 59, 0, 0, time.UTC)},
		{name: "after window", now: time.Date(2024, 6, 10, 15, 26, 0, 0, time.UTC)},
		{name: "already sent", now: monday, marked: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: no delivery is expected
			p, _, s := newPremarket(t, tt.now)
			if tt.marked {
				s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, tt.now).Return(true, nil)
			}

			// Act & Assert: run is a no-op
			require.NoError(t, p.Run(t.Context(), job.Options{}))
		})
	}
}

func TestPremarket_Run_Labels(t *testing.T) {
	t.Parallel()

	// Arrange: a labelled future compared with its cash index
	p, n, s := newPremarket(t, monday)
	p.Futures = []quote.Instrument{{Label: "S&P 500", Symbol: "ES=F", Cash: "^GSPC"}}
	var sent string
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, nil)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, text string) error {
		sent = text
		return nil
	})
	s.EXPECT().MarkSent(gomock.Any(), job.PremarketJob, monday).Return(nil)

	// Act
	require.NoError(t, p.Run(t.Context(), job.Options{}))

	// Assert: the label names the row and the best/worst sentence, escaped for HTML
	require.Contains(t, sent, "S&amp;P 500        4,500.25   ▲0.45%")
	require.Contains(t, sent, "Mejor: S&amp;P 500 +0.45%")
	require.NotContains(t, sent, "ES=F")
}

func TestPremarket_Run_ForceIgnoresGuards(t *testing.T) {
	t.Parallel()

	// Arrange: a Saturday, forced
	p, n, _ := newPremarket(t, saturday)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	// Act & Assert: sends without reading or writing a marker
	require.NoError(t, p.Run(t.Context(), job.Options{Force: true}))
}

func TestPremarket_Run_DryRunSkipsMarker(t *testing.T) {
	t.Parallel()

	// Arrange: dry-run delivery
	p, n, s := newPremarket(t, monday)
	p.DryRun = true
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, nil)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)

	// Act & Assert: no MarkSent call
	require.NoError(t, p.Run(t.Context(), job.Options{}))
}

func TestPremarket_Run_MarkerReadErrorStillSends(t *testing.T) {
	t.Parallel()

	// Arrange: the store cannot be read
	p, n, s := newPremarket(t, monday)
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, errors.New("connection refused"))
	n.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	s.EXPECT().MarkSent(gomock.Any(), job.PremarketJob, monday).Return(nil)

	// Act & Assert
	require.NoError(t, p.Run(t.Context(), job.Options{}))
}

func TestPremarket_Run_Body(t *testing.T) {
	t.Parallel()

	// Arrange: an explicit body and a resolver that must not be called
	p, n, _ := newPremarket(t, saturday)
	p.Resolver = resolverFunc(func(context.Context, []quote.Instrument) []quote.Quote {
		t.Error("resolver called")
		return nil
	})
	n.EXPECT().Send(gomock.Any(), "hola").Return(nil)

	// Act & Assert: the body is sent verbatim
	require.NoError(t, p.Run(t.Context(), job.Options{Force: true, Body: "hola"}))
}

func TestPremarket_Run_ChunksLongReport(t *testing.T) {
	t.Parallel()

	// Arrange: a long watchlist and a small message limit
	p, n, s := newPremarket(t, monday)
	p.MaxLen = 200
	for i := range 30 {
		p.Watchlist = append(p.Watchlist, quote.Instrument{Symbol: "SYM" + strings.Repeat("X", i%4)})
	}
	var chunks []string
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, nil)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, text string) error {
		chunks = append(chunks, text)
		return nil
	}).MinTimes(2)
	s.EXPECT().MarkSent(gomock.Any(), job.PremarketJob, monday).Return(nil)

	// Act
	err := p.Run(t.Context(), job.Options{})

	// Assert: every chunk fits
	require.NoError(t, err)
	for _, c := range chunks {
		require.LessOrEqual(t, len([]rune(c)), 200)
	}
}

func TestPremarket_Run_DeliveryError(t *testing.T) {
	t.Parallel()

	// Arrange: delivery fails
	p, n, s := newPremarket(t, monday)
	s.EXPECT().AlreadySent(gomock.Any(), job.PremarketJob, monday).Return(false, nil)
	n.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("telegram: 400 Bad Request"))

	// Act
	err := p.Run(t.Context(), job.Options{})

	// Assert: the error surfaces and no marker is written
	require.ErrorContains(t, err, "sending chunk 1/1")
}

func TestGreeting_Run(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		now   time.Time
		force bool
		sends bool
	}{
		{name: "weekday", now: monday, sends: true},
		{name: "weekend", now: saturday},
		{name: "weekend forced", now: saturday, force: true, sends: true},
		{name: "market holiday", now: holiday},
		{name: "market holiday forced", now: holiday, force: true, sends: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange
			n := notify.NewMockNotifier(gomock.NewController(t))
			g := &job.Greeting{
				Notifier: n,
				Location: time.UTC,
				Calendar: calendar(t),
				Now:      func() time.Time { return tt.now },
			}
			if tt.sends {
				n.EXPECT().Send(gomock.Any(), report.Greeting(tt.now)).Return(nil)
			}

			// Act & Assert
			require.NoError(t, g.Run(t.Context(), job.Options{Force: tt.force}))
		})
	}
}
