package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPrincipal_CanAccessPatient(t *testing.T) {
	tests := []struct {
		name string
		p    Principal
		id   string
		want bool
	}{
		{"own record", Principal{Subject: "p1", Role: RolePatient}, "p1", true},
		{"other patient", Principal{Subject: "p1", Role: RolePatient}, "p2", false},
		{"empty subject", Principal{Role: RolePatient}, "", false},
		{"doctor", Principal{Subject: "d1", Role: RoleDoctor}, "p2", true},
		{"admin", Principal{Subject: "a1", Role: RoleAdmin}, "p2", true},
		{"unknown role", Principal{Subject: "p1", Role: "nurse"}, "p1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.CanAccessPatient(tt.id))
		})
	}
}

func TestRole_Valid(t *testing.T) {
	assert.True(t, RoleDoctor.Valid())
	assert.False(t, Role("").Valid())
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	assert.Equal(t, at, FixedClock(at).Now())
	assert.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
