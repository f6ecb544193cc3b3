// boxdd-bench drops a grid of boxes onto a ground segment and times the
// stepping loop.
//
// Profiling:
//
//	boxdd-bench -profile cpu -bodies 2000 -steps 600
//	go tool pprof -http=":8000" cpu.pprof
package main

import (
	"flag"
	"math"
	"time"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	boxdd "github.com/Latias94/boxdd"
)

func main() {
	bodies := flag.Int("bodies", 1000, "number of falling boxes")
	steps := flag.Int("steps", 300, "number of simulation steps")
	subSteps := flag.Int("substeps", 4, "sub-steps per step")
	profileMode := flag.String("profile", "", "profiling mode: cpu or mem")
	configPath := flag.String("config", "", "optional world config TOML")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	switch *profileMode {
	case "cpu":
		p := profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook)
		defer p.Stop()
	case "mem":
		p := profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook)
		defer p.Stop()
	}

	def := boxdd.DefaultWorldDef()
	if *configPath != "" {
		def, err = boxdd.LoadWorldDefTOML(*configPath)
		if err != nil {
			log.Fatal("load config", zap.Error(err))
		}
	}

	world, err := boxdd.NewWorld(def, boxdd.WithLogger(log))
	if err != nil {
		log.Fatal("create world", zap.Error(err))
	}
	defer world.Destroy()

	buildScene(world, *bodies)
	log.Info("scene ready",
		zap.String("backend", boxdd.Backend()),
		zap.Int("bodies", world.BodyCount()),
		zap.Int("shapes", world.ShapeCount()))

	start := time.Now()
	for i := 0; i < *steps; i++ {
		world.Step(1.0/60.0, *subSteps)
	}
	elapsed := time.Since(start)

	log.Info("done",
		zap.Int("steps", *steps),
		zap.Duration("elapsed", elapsed),
		zap.Duration("per_step", elapsed/time.Duration(*steps)))
}

func buildScene(world *boxdd.World, bodies int) {
	ground := world.CreateBodyID(boxdd.DefaultBodyDef())
	groundDef := boxdd.NewShapeDef().Friction(0.8).Build()
	if _, err := world.CreateSegmentShapeFor(ground, groundDef, boxdd.Segment{
		A: boxdd.V(-200, 0), B: boxdd.V(200, 0), Radius: 0.5,
	}); err != nil {
		panic(err)
	}

	boxDef := boxdd.NewShapeDef().Density(1).Friction(0.5).Build()
	cols := int(math.Ceil(math.Sqrt(float64(bodies))))
	for i := 0; i < bodies; i++ {
		x := float64(i%cols)*1.2 - float64(cols)*0.6
		y := 2 + float64(i/cols)*1.2
		id := world.CreateBodyID(boxdd.NewBodyDef().
			Type(boxdd.Dynamic).
			Position(boxdd.V(x, y)).
			Build())
		if _, err := world.CreatePolygonShapeFor(id, boxDef, boxdd.Box(0.5, 0.5)); err != nil {
			panic(err)
		}
	}
}
