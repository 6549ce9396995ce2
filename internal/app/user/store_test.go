package user

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore() *Store {
	return NewStore(NewBcryptHasher(bcrypt.MinCost))
}

func TestRegister_DistinctUsernamesAllSucceed(t *testing.T) {
	req := require.New(t)
	store := newTestStore()

	for i := range 10 {
		req.NoError(store.Register(fmt.Sprintf("user%d", i), "secret"))
	}
	req.Equal(10, store.Count())
}

func TestRegister_DuplicateFailsWithAlreadyExists(t *testing.T) {
	req := require.New(t)
	store := newTestStore()

	req.NoError(store.Register("alice", "pw1"))
	err := store.Register("alice", "pw2")
	req.ErrorIs(err, ErrAlreadyExists)

	// the first secret is kept
	req.NoError(store.Verify("alice", "pw1"))
	req.ErrorIs(store.Verify("alice", "pw2"), ErrWrongSecret)
}

func TestRegister_ConcurrentSameUsernameHasOneWinner(t *testing.T) {
	req := require.New(t)
	store := newTestStore()

	const attempts = 32
	var wg sync.WaitGroup
	results := make(chan error, attempts)

	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- store.Register("alice", fmt.Sprintf("pw%d", i))
		}(i)
	}
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		default:
			req.ErrorIs(err, ErrAlreadyExists)
			rejected++
		}
	}

	req.Equal(1, succeeded)
	req.Equal(attempts-1, rejected)
	req.Equal(1, store.Count())
}

func TestVerify(t *testing.T) {
	req := require.New(t)
	store := newTestStore()
	req.NoError(store.Register("alice", "pw1"))

	req.NoError(store.Verify("alice", "pw1"))
	req.ErrorIs(store.Verify("alice", "nope"), ErrWrongSecret)
	req.ErrorIs(store.Verify("bob", "x"), ErrNotFound)
}

func TestRegister_LongSecrets(t *testing.T) {
	req := require.New(t)
	store := newTestStore()

	long := strings.Repeat("p", 80)
	req.NoError(store.Register("alice", long))
	req.NoError(store.Verify("alice", long))

	// secrets that differ only after byte 72 are still different secrets
	req.ErrorIs(store.Verify("alice", strings.Repeat("p", 72)+"qqqqqqqq"), ErrWrongSecret)
	req.ErrorIs(store.Verify("alice", strings.Repeat("p", 72)), ErrWrongSecret)
}

func TestStore_KeepsOnlyHashedSecrets(t *testing.T) {
	req := require.New(t)
	store := newTestStore()
	req.NoError(store.Register("alice", "pw1"))

	store.mu.RLock()
	defer store.mu.RUnlock()
	req.NotEqual("pw1", store.users["alice"].SecretHash)
}

func TestArgon2Hasher(t *testing.T) {
	req := require.New(t)
	hasher := NewArgon2Hasher()

	hash, err := hasher.Hash("correct horse")
	req.NoError(err)
	req.True(strings.HasPrefix(hash, "$argon2id$"))

	match, err := hasher.Compare(hash, "correct horse")
	req.NoError(err)
	req.True(match)

	match, err = hasher.Compare(hash, "battery staple")
	req.NoError(err)
	req.False(match)

	_, err = hasher.Compare("not-a-hash", "x")
	req.Error(err)
}

func TestNewHasher(t *testing.T) {
	req := require.New(t)

	h, err := NewHasher("bcrypt", bcrypt.MinCost)
	req.NoError(err)
	req.IsType(&BcryptHasher{}, h)

	h, err = NewHasher("argon2", 0)
	req.NoError(err)
	req.IsType(&Argon2Hasher{}, h)

	_, err = NewHasher("md5", 0)
	req.Error(err)
}
