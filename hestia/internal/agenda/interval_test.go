package agenda_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunagic/hestia/hestia/internal/agenda"
	"gotest.tools/v3/assert"
)

func TestInterval(t *testing.T) {
	t.Parallel()

	{ // Runs until the context is done
		ctx, cancel := context.WithTimeout(t.Context(), 250*time.Millisecond)
		defer cancel()

		runs := 0
		err := agenda.Interval(ctx, 20*time.Millisecond, func(ctx context.Context) error {
			runs++
			return nil
		}, func(ctx context.Context, err error) error {
			return err
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Assert(t, runs >= 3, "ran %d times", runs)
	}

	{ // Handled errors keep it running
		ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
		defer cancel()

		handled := 0
		err := agenda.Interval(ctx, 10*time.Millisecond, func(ctx context.Context) error {
			return errors.New("flaky")
		}, func(ctx context.Context, err error) error {
			handled++
			return nil
		})
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Assert(t, handled >= 2)
	}

	{ // Unhandled errors stop it
		stop := errors.New("stop")
		err := agenda.Interval(t.Context(), time.Hour, func(ctx context.Context) error {
			return stop
		}, func(ctx context.Context, err error) error {
			return err
		})
		assert.ErrorIs(t, err, stop)
	}
}
