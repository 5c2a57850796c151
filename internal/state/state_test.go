package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/grantline/assist/pkg/types"
)

func TestStore_SetAndGet(t *testing.T) {
	s := New(t.TempDir())
	scope := types.Scope{Kind: types.ScopeGrant, ID: "g-42"}

	assert.Empty(t, s.Active(scope))

	s.SetActive(scope, "c1")
	assert.Equal(t, "c1", s.Active(scope))

	s.SetActive(scope, "c2")
	assert.Equal(t, "c2", s.Active(scope))
}

func TestStore_ClearWithEmptyID(t *testing.T) {
	s := New(t.TempDir())
	scope := types.Scope{Kind: types.ScopeGlobal}

	s.SetActive(scope, "c1")
	s.SetActive(scope, "")
	assert.Empty(t, s.Active(scope))
}

func TestStore_ScopesDoNotContend(t *testing.T) {
	s := New(t.TempDir())
	global := types.Scope{Kind: types.ScopeGlobal}
	grantA := types.Scope{Kind: types.ScopeGrant, ID: "a"}
	grantB := types.Scope{Kind: types.ScopeGrant, ID: "b"}

	s.SetActive(global, "c-global")
	s.SetActive(grantA, "c-a")
	s.SetActive(grantB, "c-b")

	assert.Equal(t, "c-global", s.Active(global))
	assert.Equal(t, "c-a", s.Active(grantA))
	assert.Equal(t, "c-b", s.Active(grantB))

	s.SetActive(grantA, "")
	assert.Empty(t, s.Active(grantA))
	assert.Equal(t, "c-b", s.Active(grantB))
}

func TestStore_UnavailableStorageDegradesSilently(t *testing.T) {
	// Point the store at a path that cannot be created.
	s := New("/dev/null/not-a-dir")
	scope := types.Scope{Kind: types.ScopeGlobal}

	// Neither call may panic or surface an error.
	s.SetActive(scope, "c1")
	assert.Empty(t, s.Active(scope))
	s.SetActive(scope, "")
}
