package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestModerate(t *testing.T) {
	g := NewGate(nil)

	cases := []struct {
		text    string
		flagged bool
	}{
		{"badword1", true},
		{"you are a BADWORD2!", true},
		{"hello there", false},
		{"", false},
	}
	for _, tc := range cases {
		res := g.Moderate(tc.text)
		require.Equal(t, tc.flagged, res.Flagged, tc.text)
		if tc.flagged {
			require.Equal(t, ReasonProfanity, res.Reason)
		} else {
			require.Empty(t, res.Reason)
		}
	}
}

func TestCustomBlocklist(t *testing.T) {
	g := NewGate([]string{" Spam ", ""})
	require.True(t, g.Moderate("buy SPAM now").Flagged)
	require.False(t, g.Moderate("badword1").Flagged)
}
