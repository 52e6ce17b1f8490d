// Package benchmarks compares dinghy against other Go DI containers.
//
// Run with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"context"
	"testing"

	"github.com/samber/do/v2"
	"go.uber.org/dig"

	"github.com/dinghy-di/dinghy"
)

// Fixture graph, shallow to deep:
//
//	Telemetry (no deps)
//	Settings  (no deps)
//	Store     (Telemetry, Settings)
//	Queue     (Telemetry, Settings, Store)
//	Pipeline  (all of the above + Clock)

type Telemetry struct{ Name string }

func NewTelemetry() *Telemetry { return &Telemetry{Name: "telemetry"} }

type Settings struct{ Env string }

func NewSettings() *Settings { return &Settings{Env: "bench"} }

type Store struct {
	Telemetry *Telemetry
	Settings  *Settings
}

func NewStore(t *Telemetry, s *Settings) *Store {
	return &Store{Telemetry: t, Settings: s}
}

type Queue struct {
	Telemetry *Telemetry
	Settings  *Settings
	Store     *Store
}

func NewQueue(t *Telemetry, s *Settings, st *Store) *Queue {
	return &Queue{Telemetry: t, Settings: s, Store: st}
}

type Clock struct{ Skew int }

func NewClock() *Clock { return &Clock{} }

type Pipeline struct {
	Telemetry *Telemetry
	Settings  *Settings
	Store     *Store
	Queue     *Queue
	Clock     *Clock
}

func NewPipeline(t *Telemetry, s *Settings, st *Store, q *Queue, c *Clock) *Pipeline {
	return &Pipeline{Telemetry: t, Settings: s, Store: st, Queue: q, Clock: c}
}

func buildDinghy() dinghy.Provider {
	c := dinghy.NewCollection()
	c.AddSingleton(NewTelemetry)
	c.AddSingleton(NewSettings)
	c.AddSingleton(NewStore)
	c.AddSingleton(NewQueue)
	c.AddSingleton(NewClock)
	c.AddSingleton(NewPipeline)
	p, _ := c.Build()
	return p
}

func buildDig() *dig.Container {
	c := dig.New()
	c.Provide(NewTelemetry)
	c.Provide(NewSettings)
	c.Provide(NewStore)
	c.Provide(NewQueue)
	c.Provide(NewClock)
	c.Provide(NewPipeline)
	return c
}

func buildDo() do.Injector {
	injector := do.New()
	do.Provide(injector, func(i do.Injector) (*Telemetry, error) { return NewTelemetry(), nil })
	do.Provide(injector, func(i do.Injector) (*Settings, error) { return NewSettings(), nil })
	do.Provide(injector, func(i do.Injector) (*Store, error) {
		return NewStore(do.MustInvoke[*Telemetry](i), do.MustInvoke[*Settings](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Queue, error) {
		return NewQueue(do.MustInvoke[*Telemetry](i), do.MustInvoke[*Settings](i), do.MustInvoke[*Store](i)), nil
	})
	do.Provide(injector, func(i do.Injector) (*Clock, error) { return NewClock(), nil })
	do.Provide(injector, func(i do.Injector) (*Pipeline, error) {
		return NewPipeline(
			do.MustInvoke[*Telemetry](i),
			do.MustInvoke[*Settings](i),
			do.MustInvoke[*Store](i),
			do.MustInvoke[*Queue](i),
			do.MustInvoke[*Clock](i),
		), nil
	})
	return injector
}

func BenchmarkBuild_Dinghy(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		p := buildDinghy()
		p.Close()
	}
}

func BenchmarkBuild_Dig(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = buildDig()
	}
}

func BenchmarkBuild_Do(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		injector := buildDo()
		injector.Shutdown()
	}
}

func BenchmarkResolve_Simple_Dinghy(b *testing.B) {
	p := buildDinghy()
	defer p.Close()

	dinghy.MustResolve[*Telemetry](p)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = dinghy.MustResolve[*Telemetry](p)
	}
}

func BenchmarkResolve_Simple_Dig(b *testing.B) {
	c := buildDig()
	c.Invoke(func(t *Telemetry) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(t *Telemetry) {})
	}
}

func BenchmarkResolve_Simple_Do(b *testing.B) {
	injector := buildDo()
	do.MustInvoke[*Telemetry](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Telemetry](injector)
	}
}

func BenchmarkResolve_Deep_Dinghy(b *testing.B) {
	p := buildDinghy()
	defer p.Close()

	dinghy.MustResolve[*Pipeline](p)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = dinghy.MustResolve[*Pipeline](p)
	}
}

func BenchmarkResolve_Deep_Dig(b *testing.B) {
	c := buildDig()
	c.Invoke(func(p *Pipeline) {})

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c.Invoke(func(p *Pipeline) {})
	}
}

func BenchmarkResolve_Deep_Do(b *testing.B) {
	injector := buildDo()
	do.MustInvoke[*Pipeline](injector)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Pipeline](injector)
	}
}

func BenchmarkResolve_Transient_Dinghy(b *testing.B) {
	c := dinghy.NewCollection()
	c.AddTransient(NewTelemetry)
	p, _ := c.Build()
	defer p.Close()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = dinghy.MustResolve[*Telemetry](p)
	}
}

func BenchmarkResolve_Transient_Do(b *testing.B) {
	injector := do.New()
	do.ProvideTransient(injector, func(i do.Injector) (*Telemetry, error) { return NewTelemetry(), nil })

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = do.MustInvoke[*Telemetry](injector)
	}
}

// Dig has no transient lifetime, so it is absent above.

func BenchmarkResolve_Concurrent_Dinghy(b *testing.B) {
	p := buildDinghy()
	defer p.Close()

	dinghy.MustResolve[*Pipeline](p)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = dinghy.MustResolve[*Pipeline](p)
		}
	})
}

func BenchmarkResolve_Concurrent_Dig(b *testing.B) {
	c := buildDig()
	c.Invoke(func(p *Pipeline) {})

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			c.Invoke(func(p *Pipeline) {})
		}
	})
}

func BenchmarkResolve_Concurrent_Do(b *testing.B) {
	injector := buildDo()
	do.MustInvoke[*Pipeline](injector)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = do.MustInvoke[*Pipeline](injector)
		}
	})
}

func BenchmarkScope_Create_Dinghy(b *testing.B) {
	c := dinghy.NewCollection()
	c.AddSingleton(NewTelemetry)
	c.AddScoped(NewSettings)
	c.AddScoped(NewStore)
	p, _ := c.Build()
	defer p.Close()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		scope, _ := p.CreateScope(context.Background())
		scope.Close()
	}
}

func BenchmarkScope_Resolve_Dinghy(b *testing.B) {
	c := dinghy.NewCollection()
	c.AddSingleton(NewTelemetry)
	c.AddScoped(NewSettings)
	c.AddScoped(NewStore)
	p, _ := c.Build()
	defer p.Close()

	scope, _ := p.CreateScope(context.Background())
	defer scope.Close()

	dinghy.MustResolve[*Store](scope)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = dinghy.MustResolve[*Store](scope)
	}
}
