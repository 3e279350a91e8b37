// Command obstacle-avoidance runs the companion-computer obstacle
// avoidance core: it reads config.yaml, wires the LiDAR, merge,
// decision (or VFH), and flight-interface stages into the pipeline
// fabric, and runs until SIGINT.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/uwarg/obstacle-avoidance-core/internal/config"
	"github.com/uwarg/obstacle-avoidance-core/internal/decision"
	"github.com/uwarg/obstacle-avoidance-core/internal/domain"
	"github.com/uwarg/obstacle-avoidance-core/internal/flightlink"
	"github.com/uwarg/obstacle-avoidance-core/internal/lidar"
	"github.com/uwarg/obstacle-avoidance-core/internal/merge"
	"github.com/uwarg/obstacle-avoidance-core/internal/oscillation"
	"github.com/uwarg/obstacle-avoidance-core/internal/pipeline"
	"github.com/uwarg/obstacle-avoidance-core/internal/vfh"
)

var configPath = flag.String("config", "config.yaml", "Path to config.yaml")

func main() {
	os.Exit(run())
}

// run returns the process exit code so main can stay a one-liner:
// 0 on clean shutdown, -1 on configuration error. It also returns -1
// without starting any stage when the flight interface cannot be
// opened or the LiDAR cannot be opened or set up.
func run() int {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("obstacle-avoidance: configuration error: %v", err)
		return -1
	}

	sup := pipeline.NewSupervisor(log.Default())
	log.Printf("obstacle-avoidance: starting pipeline run %s (mode=%v)", sup.RunID, cfg.Mode())

	link, err := flightlink.Open(context.Background(), newAutopilotLink(cfg), flightlink.Config{
		WorkerPeriod:                   cfg.WorkerPeriodDuration(),
		HomeLocationTimeout:            time.Duration(cfg.FlightInterface.Timeout) * time.Second,
		FirstWaypointDistanceTolerance: cfg.FlightInterface.FirstWaypointDistanceTolerance,
	})
	if err != nil {
		log.Printf("obstacle-avoidance: flight interface unavailable: %v", err)
		return -1
	}

	driver, err := lidar.Open(lidar.Config{
		PortName:    cfg.Detection.SerialPortName,
		BaudRate:    cfg.Detection.SerialPortBaudrate,
		PortTimeout: cfg.PortTimeoutDuration(),
		UpdateRate:  cfg.Detection.UpdateRate,
		LowAngle:    cfg.Detection.LowAngle,
		HighAngle:   cfg.Detection.HighAngle,
		RotateSpeed: cfg.Detection.RotateSpeed,
		Logger:      log.Default(),
	})
	if err != nil {
		log.Printf("obstacle-avoidance: lidar unavailable: %v", err)
		return -1
	}
	defer driver.Close()
	if err := driver.Init(); err != nil {
		log.Printf("obstacle-avoidance: lidar setup failed: %v", err)
		return -1
	}
	driver.Identify()

	detections := pipeline.NewQueue[domain.LidarDetection](cfg.QueueMaxSize)
	odometry := pipeline.NewQueue[domain.OdometryAndWaypoint](cfg.QueueMaxSize)
	var commands *pipeline.Queue[domain.DecisionCommand]
	var steering *pipeline.Queue[domain.SteeringCommand]

	sup.RegisterQueue(func() { detections.FillAndDrain(domain.LidarDetection{}) })
	sup.RegisterQueue(func() { odometry.FillAndDrain(domain.OdometryAndWaypoint{}) })

	sup.Go("lidar", func(ctx context.Context) error {
		out := make(chan domain.LidarDetection)
		go func() {
			for d := range out {
				detections.Put(d)
			}
		}()
		return driver.Stream(ctx, out)
	})

	switch cfg.Mode() {
	case config.ModeSimple:
		commands = pipeline.NewQueue[domain.DecisionCommand](cfg.QueueMaxSize)
		merged := pipeline.NewQueue[domain.DetectionsAndOdometry](cfg.QueueMaxSize)
		sup.RegisterQueue(func() { commands.FillAndDrain(domain.DecisionCommand{}) })
		sup.RegisterQueue(func() { merged.FillAndDrain(domain.DetectionsAndOdometry{}) })
		sup.Go("merge", func(ctx context.Context) error {
			runMergeStage(sup.Controller, detections, odometry, merged, cfg.MergeDelayDuration())
			return nil
		})
		sup.Go("decision", func(ctx context.Context) error {
			runDecisionStage(sup.Controller, merged, commands, cfg)
			return nil
		})
	case config.ModeVFH:
		steering = pipeline.NewQueue[domain.SteeringCommand](cfg.QueueMaxSize)
		sup.RegisterQueue(func() { steering.FillAndDrain(domain.SteeringCommand{}) })
		sup.Go("vfh", func(ctx context.Context) error {
			runVFHStage(sup.Controller, detections, odometry, steering, cfg)
			return nil
		})
	}

	sup.Go("flight-interface", func(ctx context.Context) error {
		// The loop returns only once exit is requested (e.g. by the
		// MANUAL-mode kill switch); cancelling the supervisor then
		// runs the queue teardown hooks and stops the other stages.
		defer sup.Shutdown()
		return runFlightInterface(ctx, sup.Controller, link, cfg, odometry, commands, steering)
	})

	if err := sup.Wait(); err != nil {
		log.Printf("obstacle-avoidance: pipeline stopped with error: %v", err)
	}
	log.Printf("obstacle-avoidance: clean shutdown")
	return 0
}

// mergeController adapts pipeline.WorkerController to the narrow
// merge.Controller interface the merge stage depends on.
type mergeController struct{ c *pipeline.WorkerController }

func (m mergeController) CheckPause()          { m.c.CheckPause() }
func (m mergeController) IsExitRequested() bool { return m.c.IsExitRequested() }

func runMergeStage(ctrl *pipeline.WorkerController, detections *pipeline.Queue[domain.LidarDetection], odometry *pipeline.Queue[domain.OdometryAndWaypoint], merged *pipeline.Queue[domain.DetectionsAndOdometry], delay time.Duration) {
	detCh := make(chan domain.LidarDetection)
	odoCh := make(chan domain.OdometryAndWaypoint)
	outCh := make(chan domain.DetectionsAndOdometry)

	go drainQueueToChannel(detections, detCh)
	go drainQueueToChannel(odometry, odoCh)
	go func() {
		for m := range outCh {
			merged.Put(m)
		}
	}()

	m := merge.New(detCh, odoCh, outCh, delay)
	m.Run(mergeController{ctrl})
}

func runDecisionStage(ctrl *pipeline.WorkerController, merged *pipeline.Queue[domain.DetectionsAndOdometry], commands *pipeline.Queue[domain.DecisionCommand], cfg *config.Config) {
	engine := decision.New(decision.Config{
		ProximityLimit: cfg.Decision.ObjectProximityLimit,
		MaxHistory:     cfg.Decision.MaxHistory,
		CommandTimeout: cfg.CommandTimeoutDuration(),
	})

	for !ctrl.IsExitRequested() {
		ctrl.CheckPause()
		batch := merged.Get()
		if cmd, ok := engine.Push(batch); ok {
			commands.Put(cmd)
		}
	}
}

func runVFHStage(ctrl *pipeline.WorkerController, detections *pipeline.Queue[domain.LidarDetection], odometry *pipeline.Queue[domain.OdometryAndWaypoint], steering *pipeline.Queue[domain.SteeringCommand], cfg *config.Config) {
	segmenter := oscillation.New()
	histogram := vfh.NewHistogram(vfh.HistogramConfig{
		SectorWidth:        cfg.SectorWidth,
		StartAngle:         cfg.StartAngle,
		EndAngle:           cfg.EndAngle,
		MaxVectorMagnitude: cfg.MaxVectorMagnitude,
		LinearDecayRate:    cfg.LinearDecayRate,
		ConfidenceValue:    cfg.ConfidenceValue,
	})
	decider := vfh.NewDecision(vfh.DecisionConfig{
		DensityThreshold:    cfg.DensityThreshold,
		MinConsecSectors:    cfg.MinConsecSectors,
		WideValleyThreshold: cfg.WideValleyThreshold,
	})

	var latestOdometry domain.OdometryAndWaypoint
	for !ctrl.IsExitRequested() {
		ctrl.CheckPause()

		if o, ok := odometry.TryGet(); ok {
			latestOdometry = o
		}

		d := detections.Get()
		osc, reversed := segmenter.Push(d)
		if !reversed {
			continue
		}

		density := histogram.Build(osc)
		steering.Put(decider.Run(density, latestOdometry))
	}
}

func runFlightInterface(ctx context.Context, ctrl *pipeline.WorkerController, link *flightlink.Bridge, cfg *config.Config, odometry *pipeline.Queue[domain.OdometryAndWaypoint], commands *pipeline.Queue[domain.DecisionCommand], steering *pipeline.Queue[domain.SteeringCommand]) error {
	period := cfg.WorkerPeriodDuration()
	if period <= 0 {
		period = 100 * time.Millisecond
	}

	for !ctrl.IsExitRequested() {
		ctrl.CheckPause()

		result, err := link.Tick(ctx, time.Now())
		if err != nil {
			log.Printf("flight-interface: tick error: %v", err)
			time.Sleep(period)
			continue
		}

		odometry.TryPut(result.Odometry, period)

		if result.ManualKill {
			log.Printf("flight-interface: MANUAL mode observed, requesting pipeline exit")
			ctrl.RequestExit()
			return nil
		}

		if commands != nil {
			if cmd, ok := commands.TryGet(); ok {
				if _, err := link.DispatchCommand(ctx, cmd); err != nil {
					log.Printf("flight-interface: set_flight_mode failed: %v", err)
				}
			}
		}

		if steering != nil {
			if cmd, ok := steering.TryGet(); ok {
				if _, err := link.DispatchSteering(ctx, cmd); err != nil {
					log.Printf("flight-interface: set_yaw failed: %v", err)
				}
			}
		}

		time.Sleep(period)
	}
	return nil
}

func drainQueueToChannel[T any](q *pipeline.Queue[T], out chan<- T) {
	for {
		out <- q.Get()
	}
}
