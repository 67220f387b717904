// Profiling:
// go build ./profile/entities
// go tool pprof -http=":8000" -nodefraction=0.001 ./entities mem.pprof

package main

import (
	"github.com/edwinsyarief/seiretsu"
	"github.com/pkg/profile"
)

type comp1 struct {
	V int64
	W int64
}

type comp2 struct {
	V int64
	W int64
}

func main() {
	count := 50
	iters := 10000
	entities := 1000
	p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
	run(count, iters, entities)
	p.Stop()
}

func run(rounds, iters, numEntities int) {
	for range rounds {
		w := seiretsu.NewWorld(seiretsu.WithInitialCapacity(numEntities))
		spawner := seiretsu.With(seiretsu.With(w.Entity(), comp1{}), comp2{V: 1, W: 1})
		query := w.Query(seiretsu.Comp[comp1](w), seiretsu.Comp[comp2](w)).Compile()
		stream := seiretsu.NewStream2[comp1, comp2](query)

		for range iters {
			if _, err := spawner.Spawn(numEntities); err != nil {
				panic(err)
			}
			err := stream.For(func(e seiretsu.Entity, c1 *comp1, c2 *comp2) {
				c1.V += c2.V
				c1.W += c2.W
				_ = w.Despawn(e)
			})
			if err != nil {
				panic(err)
			}
		}
	}
}
