package alloc

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// validator is the test-facing surface shared by both managers.
type validator interface {
	Allocator
	Check() error
}

type liveAlloc struct {
	ref Ref
	buf []byte
	pat byte
}

// Test_Fuzz_RandomOps_GuardInvariants drives both managers through the
// same seeded random workload, shadowing every live allocation, and
// verifies after each step that payload patterns survive and the full
// invariant checker stays green.
func Test_Fuzz_RandomOps_GuardInvariants(t *testing.T) {
	managers := map[string]func([]byte) (validator, error){
		"tree": func(region []byte) (validator, error) {
			return NewTree(region)
		},
		"seglist": func(region []byte) (validator, error) {
			return NewSegList(region)
		},
	}
	for name, build := range managers {
		t.Run(name, func(t *testing.T) {
			m, err := build(make([]byte, 1<<16))
			require.NoError(t, err)
			runFuzz(t, m)
		})
	}
}

func runFuzz(t *testing.T, m validator) {
	rng := rand.New(rand.NewSource(42)) // fixed seed for reproducibility
	var live []liveAlloc
	pat := byte(1)

	for step := 0; step < 1500; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(live) == 0: // alloc
			size := 1 + rng.Intn(600)
			ref, buf, err := m.Alloc(size)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace, "step %d: alloc %d", step, size)
				break
			}
			fillPattern(buf, pat)
			live = append(live, liveAlloc{ref: ref, buf: buf, pat: pat})
			pat++
			if pat == 0 {
				pat = 1
			}

		case op == 1: // free
			i := rng.Intn(len(live))
			requirePattern(t, live[i].buf, live[i].pat)
			require.NoError(t, m.Free(live[i].ref), "step %d: free 0x%X", step, live[i].ref)
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]

		case op == 2: // realloc
			i := rng.Intn(len(live))
			requirePattern(t, live[i].buf, live[i].pat)
			size := 1 + rng.Intn(900)
			ref, buf, err := m.Realloc(live[i].ref, size)
			if err != nil {
				require.ErrorIs(t, err, ErrNoSpace, "step %d: realloc to %d", step, size)
				// Failure must leave the old allocation intact.
				requirePattern(t, live[i].buf, live[i].pat)
				break
			}
			fillPattern(buf, live[i].pat)
			live[i].ref = ref
			live[i].buf = buf

		default: // verify a random survivor
			i := rng.Intn(len(live))
			requirePattern(t, live[i].buf, live[i].pat)
		}

		if step%16 == 0 {
			require.NoError(t, m.Check(), "step %d", step)
		}
	}

	// Everything still live must be intact and freeable, and draining
	// the region must collapse it back to a single free block.
	for _, a := range live {
		requirePattern(t, a.buf, a.pat)
		require.NoError(t, m.Free(a.ref))
	}
	require.NoError(t, m.Check())
	require.Equal(t, 1, m.FreeCount())
}

// Test_Fuzz_ChurnSameSize hammers the duplicate-chain path: one size,
// many slots, random free order.
func Test_Fuzz_ChurnSameSize(t *testing.T) {
	tr := newTestTree(t, 1<<16)
	rng := rand.New(rand.NewSource(7))

	refs := make([]Ref, 0, 64)
	for round := 0; round < 40; round++ {
		for len(refs) < 64 {
			ref, _, err := tr.Alloc(56)
			require.NoError(t, err)
			refs = append(refs, ref)
		}
		rng.Shuffle(len(refs), func(i, j int) { refs[i], refs[j] = refs[j], refs[i] })
		drop := 16 + rng.Intn(32)
		for i := 0; i < drop; i++ {
			require.NoError(t, tr.Free(refs[len(refs)-1]))
			refs = refs[:len(refs)-1]
		}
		require.NoError(t, tr.Check(), "round %d", round)
	}

	for _, ref := range refs {
		require.NoError(t, tr.Free(ref))
	}
	require.NoError(t, tr.Check())
	require.Equal(t, 1, tr.FreeCount())
}
