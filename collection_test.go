package dinghy_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dinghy-di/dinghy"
)

type collectionTestStore interface {
	Kind() string
}

type collectionTestFileStore struct {
	Config *testConfig `inject:"optional"`
}

func (s *collectionTestFileStore) Kind() string { return "file" }

type collectionTestMemStore struct{}

func (s *collectionTestMemStore) Kind() string { return "memory" }

func newCollectionTestFileStore() *collectionTestFileStore {
	return &collectionTestFileStore{}
}

func TestCollection_Add(t *testing.T) {
	t.Run("registers constructors with each lifetime", func(t *testing.T) {
		c := dinghy.NewCollection()

		require.NoError(t, c.AddSingleton(newTestLogger))
		require.NoError(t, c.AddScoped(newTestDatabase))
		require.NoError(t, c.AddTransient(newTestSession))

		assert.Equal(t, 3, c.Count())
		assert.True(t, c.Contains(reflect.TypeOf(&testLogger{})))
		assert.True(t, c.Contains(reflect.TypeOf(&testDatabase{})))
		assert.False(t, c.Contains(reflect.TypeOf(&testConfig{})))
	})

	t.Run("rejects nil constructor", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := c.AddSingleton(nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, dinghy.ErrConstructorNil)
	})

	t.Run("rejects constructor without return value", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := c.AddSingleton(func() {})
		require.Error(t, err)

		var regErr dinghy.RegistrationError
		assert.ErrorAs(t, err, &regErr)
	})

	t.Run("rejects invalid lifetime", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := c.Add(dinghy.Lifetime(42), newTestLogger)
		require.Error(t, err)

		var lifetimeErr dinghy.LifetimeError
		assert.ErrorAs(t, err, &lifetimeErr)
	})

	t.Run("accepts constructor with error return", func(t *testing.T) {
		c := dinghy.NewCollection()

		require.NoError(t, c.AddSingleton(func() (*testLogger, error) {
			return newTestLogger(), nil
		}))
	})
}

func TestCollection_AddInstance(t *testing.T) {
	t.Run("registers fixed instance", func(t *testing.T) {
		c := dinghy.NewCollection()
		cfg := &testConfig{Name: "prod"}

		require.NoError(t, c.AddInstance(cfg))

		descriptors := c.Descriptors()
		require.Len(t, descriptors, 1)
		assert.True(t, descriptors[0].IsInstance)
		assert.Equal(t, dinghy.Singleton, descriptors[0].Lifetime)
	})

	t.Run("rejects nil instance", func(t *testing.T) {
		c := dinghy.NewCollection()
		require.Error(t, c.AddInstance(nil))
	})

	t.Run("rejects function values", func(t *testing.T) {
		c := dinghy.NewCollection()
		err := c.AddInstance(newTestLogger)
		require.Error(t, err)
		assert.ErrorIs(t, err, dinghy.ErrInstanceIsFunc)
		assert.NotErrorIs(t, err, dinghy.ErrConstructorNil)
	})
}

func TestCollection_As(t *testing.T) {
	t.Run("registers under interface identity", func(t *testing.T) {
		c := dinghy.NewCollection()

		require.NoError(t, c.AddSingleton(newCollectionTestFileStore, dinghy.As(new(collectionTestStore))))

		storeType := reflect.TypeOf((*collectionTestStore)(nil)).Elem()
		assert.True(t, c.Contains(storeType))
		assert.False(t, c.Contains(reflect.TypeOf(&collectionTestFileStore{})))
	})

	t.Run("rejects non-interface target", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := c.AddSingleton(newCollectionTestFileStore, dinghy.As(new(testConfig)))
		require.Error(t, err)
	})

	t.Run("rejects implementation that does not satisfy the interface", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := c.AddSingleton(newTestLogger, dinghy.As(new(collectionTestStore)))
		require.Error(t, err)
	})
}

func TestCollection_Register(t *testing.T) {
	t.Run("binds implementation type to service identity", func(t *testing.T) {
		c := dinghy.NewCollection()

		require.NoError(t, dinghy.AddType[collectionTestStore, *collectionTestMemStore](c, dinghy.Scoped))

		storeType := reflect.TypeOf((*collectionTestStore)(nil)).Elem()
		assert.True(t, c.Contains(storeType))
	})

	t.Run("rejects unassignable implementation", func(t *testing.T) {
		c := dinghy.NewCollection()

		err := dinghy.AddType[collectionTestStore, *testLogger](c, dinghy.Scoped)
		require.Error(t, err)
	})

	t.Run("rejects non-struct implementation", func(t *testing.T) {
		c := dinghy.NewCollection()

		serviceType := reflect.TypeOf((*any)(nil)).Elem()
		err := c.Register(serviceType, reflect.TypeOf(42), dinghy.Transient)
		require.Error(t, err)
	})
}

func TestCollection_DuplicateRegistrations(t *testing.T) {
	// The first registration for a service type wins; later ones are
	// retained but shadowed.
	c := dinghy.NewCollection()

	first := &testConfig{Name: "first"}
	second := &testConfig{Name: "second"}
	require.NoError(t, c.AddInstance(first))
	require.NoError(t, c.AddInstance(second))
	assert.Equal(t, 2, c.Count())

	provider, err := c.Build()
	require.NoError(t, err)
	defer provider.Close()

	resolved, err := dinghy.Resolve[*testConfig](provider)
	require.NoError(t, err)
	assert.Same(t, first, resolved)
}

func TestCollection_AddAfterBuild(t *testing.T) {
	c := dinghy.NewCollection()
	require.NoError(t, c.AddSingleton(newTestLogger))

	provider, err := c.Build()
	require.NoError(t, err)
	defer provider.Close()

	err = c.AddSingleton(func() *testConfig { return &testConfig{} })
	require.Error(t, err)
	assert.ErrorIs(t, err, dinghy.ErrCollectionBuilt)
}
