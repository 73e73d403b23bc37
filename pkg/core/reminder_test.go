package core_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notenest/pkg/core"
)

func TestParseReminder(t *testing.T) {
	saoPaulo := time.FixedZone("BRT", -3*60*60)

	t.Run("Partial input yields no reminder", func(t *testing.T) {
		for _, in := range [][2]string{{"2026-11-02", ""}, {"", "08:30"}, {" ", " "}} {
			got, err := core.ParseReminder(in[0], in[1], time.UTC)
			require.NoError(t, err)
			assert.Nil(t, got, "date=%q time=%q", in[0], in[1])
		}
	})

	t.Run("Combines date and time in the given zone", func(t *testing.T) {
		got, err := core.ParseReminder("2026-11-02", "08:30", saoPaulo)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 11, 2, 11, 30, 0, 0, time.UTC), *got)
	})

	t.Run("Accepts seconds and other date layouts", func(t *testing.T) {
		got, err := core.ParseReminder("Nov 2, 2026", "08:30:15", time.UTC)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, time.Date(2026, 11, 2, 8, 30, 15, 0, time.UTC), *got)
	})

	t.Run("Invalid input", func(t *testing.T) {
		_, err := core.ParseReminder("not a date", "08:30", time.UTC)
		assert.ErrorIs(t, err, core.ErrValidation)

		_, err = core.ParseReminder("2026-11-02", "half past eight", time.UTC)
		assert.ErrorIs(t, err, core.ErrValidation)
	})
}
