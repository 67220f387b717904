// Profiling:
// go build ./profile/stream
// go tool pprof -http=":8000" -nodefraction=0.001 ./stream cpu.pprof

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/edwinsyarief/seiretsu"
	"github.com/fatih/color"
	"github.com/pkg/profile"
)

type position struct {
	X, Y float64
}

type velocity struct {
	X, Y float64
}

type debt struct {
	Amount int64
}

func main() {
	rounds := flag.Int("rounds", 50, "measured rounds")
	entities := flag.Int("entities", 100000, "entities per world")
	targets := flag.Int("targets", 3, "relation targets per entity")
	mode := flag.String("mode", "cpu", "profile mode: cpu or mem")
	flag.Parse()

	var p interface{ Stop() }
	switch *mode {
	case "mem":
		p = profile.Start(profile.MemProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	default:
		p = profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
	}
	w := run(*rounds, *entities, *targets)
	p.Stop()

	fmt.Println(color.CyanString("archetype graph after %d rounds", *rounds))
	seiretsu.WriteStats(os.Stdout, w.Stats())
}

func run(rounds, numEntities, numTargets int) *seiretsu.World {
	w := seiretsu.NewWorld(seiretsu.WithInitialCapacity(numEntities))
	spawner := seiretsu.With(seiretsu.With(w.Entity(), position{}), velocity{X: 1, Y: 1})
	for range numTargets {
		seiretsu.With(spawner, debt{Amount: 1}, seiretsu.RelationTo(w.Spawn()))
	}
	if _, err := spawner.Spawn(numEntities); err != nil {
		panic(err)
	}

	movers := seiretsu.NewStream2[position, velocity](
		w.Query(seiretsu.Comp[position](w), seiretsu.Comp[velocity](w)).Compile())
	debts := seiretsu.NewStream2[debt, position](
		w.Query(seiretsu.Comp[debt](w, seiretsu.MatchEntity)).Compile(), seiretsu.MatchEntity)

	for r := range rounds {
		err := movers.Job(func(_ seiretsu.Entity, p *position, v *velocity) {
			p.X += v.X
			p.Y += v.Y
		})
		if err != nil {
			panic(err)
		}
		var total int64
		err = debts.For(func(_ seiretsu.Entity, d *debt, _ *position) {
			total += d.Amount
		})
		if err != nil {
			panic(err)
		}
		if r == rounds-1 {
			fmt.Println(color.GreenString("%d debts", total))
		}
	}
	return w
}
