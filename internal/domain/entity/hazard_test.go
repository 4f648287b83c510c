package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeLabel(t *testing.T) {
	require.Equal(t, "crocodile-crack", NormalizeLabel("crocodile crack"))
	require.Equal(t, "crocodile-crack", NormalizeLabel("  Crocodile_Crack "))
	require.Equal(t, "pothole", NormalizeLabel("POTHOLE"))
	require.Equal(t, "lateral-crack", NormalizeLabel("lateral--crack"))
	require.Equal(t, "", NormalizeLabel("   "))
}

func TestHazardVariants(t *testing.T) {
	hazards := []Hazard{
		KnownHazard{Type: HazardPothole, Label: "pothole"},
		UnknownHazard{Label: "manhole"},
	}

	var known, unknown int
	for _, h := range hazards {
		switch h.(type) {
		case KnownHazard:
			known++
		case UnknownHazard:
			unknown++
		}
	}
	require.Equal(t, 1, known)
	require.Equal(t, 1, unknown)
	require.Equal(t, "manhole", hazards[1].HazardLabel())
	require.Len(t, AllHazardTypes(), 4)
}
