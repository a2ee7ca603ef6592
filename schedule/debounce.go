// Package schedule bündelt Auslöser von periodischen Aufgaben, damit pro Zeitfenster höchstens
// ein Lauf stattfindet.
package schedule

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Debouncer führt eine Funktion pro Schlüssel höchstens einmal je Fenster aus. Aufrufe während
// eines laufenden Durchgangs hängen sich an dessen Ergebnis an, Aufrufe kurz nach einem
// erfolgreichen Lauf werden verworfen. Nach einem Fehler läuft der nächste Aufruf sofort.
type Debouncer struct {
	window time.Duration
	now    func() time.Time

	group singleflight.Group
	mu    sync.Mutex
	last  map[string]time.Time
}

// NewDebouncer erstellt einen Debouncer mit dem gegebenen Fenster.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{window: window, now: time.Now, last: map[string]time.Time{}}
}

// WithClock ersetzt die Uhr, für Tests.
func (d *Debouncer) WithClock(now func() time.Time) *Debouncer {
	d.now = now
	return d
}

// Do startet fn, sofern im Fenster noch kein Lauf begonnen hat. ran meldet, ob fn (für diesen
// oder einen gleichzeitigen Aufrufer) tatsächlich ausgeführt wurde.
func (d *Debouncer) Do(ctx context.Context, key string, fn func(context.Context) error) (ran bool, err error) {
	_, ran, err = d.DoValue(ctx, key, func(ctx context.Context) (interface{}, error) {
		return nil, fn(ctx)
	})
	return ran, err
}

type outcome struct {
	ran bool
	val interface{}
}

// DoValue ist Do mit Rückgabewert. Angehängte Aufrufer erhalten denselben Wert.
func (d *Debouncer) DoValue(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (val interface{}, ran bool, err error) {
	ch := d.group.DoChan(key, func() (interface{}, error) {
		if !d.claim(key) {
			return outcome{}, nil
		}
		v, err := fn(ctx)
		if err != nil {
			// fehlgeschlagene Läufe sperren das Fenster nicht
			d.Reset(key)
		}
		return outcome{ran: true, val: v}, err
	})

	select {
	case res := <-ch:
		o, _ := res.Val.(outcome)
		return o.val, o.ran, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Reset vergisst den letzten Lauf, der nächste Aufruf wird sofort ausgeführt.
func (d *Debouncer) Reset(key string) {
	d.mu.Lock()
	delete(d.last, key)
	d.mu.Unlock()
}

func (d *Debouncer) claim(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	if last, ok := d.last[key]; ok && now.Sub(last) < d.window {
		return false
	}
	d.last[key] = now
	return true
}
