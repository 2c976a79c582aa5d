package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stemsi/exam-session-engine/internal/model"
)

func TestCheck(t *testing.T) {
	manager := NewPrincipal(1, model.RoleManager)
	employee := NewPrincipal(2, model.RoleEmployee)
	instructor := NewPrincipal(3, model.RoleInstructor)
	student := NewPrincipal(4, model.RoleStudent)

	cases := []struct {
		name    string
		p       Principal
		c       Capability
		owner   int
		allowed bool
	}{
		{"manager edits any exam", manager, ManageExam, 99, true},
		{"instructor edits own exam", instructor, ManageExam, 3, true},
		{"instructor edits foreign exam", instructor, ManageExam, 99, false},
		{"employee cannot edit", employee, ManageExam, 2, false},
		{"employee reads results", employee, ReadResult, 99, true},
		{"employee cannot approve", employee, Approve, 99, false},
		{"instructor approves own", instructor, Approve, 3, true},
		{"student takes exam", student, TakeExam, 0, true},
		{"student cannot read exam key", student, ReadExam, 0, false},
		{"employee reads any exam", employee, ReadExam, 99, true},
		{"instructor reads own exam", instructor, ReadExam, 3, true},
		{"instructor cannot read foreign exam", instructor, ReadExam, 99, false},
		{"instructor cannot take exam", instructor, TakeExam, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.p, tc.c, tc.owner)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrDenied)
			}
		})
	}
}

func TestScope(t *testing.T) {
	owner, ok := Scope(NewPrincipal(1, model.RoleManager), ManageExam)
	assert.True(t, ok)
	assert.Zero(t, owner)

	owner, ok = Scope(NewPrincipal(3, model.RoleInstructor), ReadResult)
	assert.True(t, ok)
	assert.Equal(t, 3, owner)

	owner, ok = Scope(NewPrincipal(2, model.RoleEmployee), ReadExam)
	assert.True(t, ok)
	assert.Zero(t, owner)

	_, ok = Scope(NewPrincipal(4, model.RoleStudent), ReadResult)
	assert.False(t, ok)
}

func TestHasAny(t *testing.T) {
	p := NewPrincipal(3, model.RoleInstructor)
	assert.True(t, p.HasAny(model.PermissionExamsWriteAll, model.PermissionExamsWriteOwn))
	assert.False(t, p.HasAny(model.PermissionExamsTake))
}
