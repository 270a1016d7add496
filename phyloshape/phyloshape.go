/*

Phyloshape reconstructs ancestral 3-D shapes on a phylogenetic tree
by maximum likelihood under a Brownian motion model of shape change.

The basic usage looks like this:

	phyloshape shapes.sal tree.nwk

, this will reconstruct every internal node's shape and print the
reconstructions in the shape alignment format.

The translator and the optimization can be tuned:

	phyloshape -mode old -numvs 30 -bestof 5 shapes.sal tree.nwk

To see all the options run:

	phyloshape -h

*/
package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"

	bolt "go.etcd.io/bbolt"

	"github.com/phyloshape/phyloshape/checkpoint"
	"github.com/phyloshape/phyloshape/optimize"
	"github.com/phyloshape/phyloshape/phylo"
	"github.com/phyloshape/phyloshape/shape"
	"github.com/phyloshape/phyloshape/tree"
	"github.com/phyloshape/phyloshape/vectors"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("phyloshape")
var formatter = logging.MustStringFormatter(`%{message}`)

// checkpointKey is the database key of the reconstruction record.
var checkpointKey = []byte("reconstruction")

// command-line options
var (
	// application
	app = kingpin.New("phyloshape", "ancestral shape reconstruction by maximum likelihood").Version(version)

	// input tree and shape alignment
	shapesFileName = app.Arg("shapes", "shape alignment").Required().ExistingFile()
	treeFileName   = app.Arg("tree", "phylogenetic tree").Required().ExistingFile()

	// translator parameters
	mode = app.Flag("mode", "translator mode ("+
		"network-local: fit the landmark reference from all samples, "+
		"old: fit from the first sample only, kept for compatibility"+
		")").Default("network-local").Enum("network-local", "old")
	numVS     = app.Flag("numvs", "number of reference landmark vertices").Default("20").Int()
	numVTIter = app.Flag("numvtiter", "number of landmark refinement iterations").Default("5").Int()

	// optimizer parameters
	attempts = app.Flag("attempts", "optimization attempt budget").Default("200").Int()
	bestOf   = app.Flag("bestof", "number of successful attempts to collect, "+
		"keeping the lowest objective (1: first success wins)").Default("1").Int()
	seed = app.Flag("seed", "random generator seed for the initial guesses, default time based").Default("-1").Int64()

	// technical
	numProc = app.Flag("procs", "concurrency hint; accepted for compatibility and ignored, "+
		"the reconstruction runs single-threaded").Default("1").Int()
	checkpointFileName = app.Flag("checkpoint", "checkpoint file").String()

	// input/output
	outF     = app.Flag("out", "write reconstructed shapes to a file (default stdout)").String()
	trajF    = app.Flag("trajectory", "write per-attempt objective values to a file").String()
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")
)

func run() {
	startTime := time.Now()

	shapesFile, err := os.Open(*shapesFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer shapesFile.Close()

	ali, err := shape.ParseAlignment(shapesFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Read %d shapes of %d vertices", ali.NSamples(), ali.NVertices())

	treeFile, err := os.Open(*treeFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer treeFile.Close()

	t, err := tree.ParseNewick(treeFile)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Read tree with %d tips, %d nodes", t.NTips(), t.NNodes())
	log.Debugf("intree=%s", t)

	trMode, err := vectors.ParseMode(*mode)
	if err != nil {
		log.Fatal(err)
	}

	driver := optimize.NewDriver(optimize.NewBasinHopping(), *seed)
	driver.MaxAttempts = *attempts
	driver.BestOf = *bestOf

	var traj *os.File
	if *trajF != "" {
		traj, err = os.Create(*trajF)
		if err != nil {
			log.Fatal("Error creating trajectory file:", err)
		}
		defer traj.Close()
	}

	var cpio *checkpoint.IO
	if *checkpointFileName != "" {
		db, err := bolt.Open(*checkpointFileName, 0600, nil)
		if err != nil {
			log.Fatal("Error opening checkpoint file:", err)
		}
		defer db.Close()
		cpio = checkpoint.NewIO(db, checkpointKey, 30)
		if data, err := cpio.Load(); err != nil {
			log.Fatal("Error reading checkpoint file:", err)
		} else if data != nil && data.Final {
			log.Notice("Reconstruction already finished according to the checkpoint; rerunning")
		}
	}

	var best *optimize.Result
	driver.OnAttempt = func(attempt int, res optimize.Result) {
		if traj != nil {
			fmt.Fprintf(traj, "%d\t%g\t%v\n", attempt, res.F, res.Success)
		}
		if res.Success && (best == nil || res.F < best.F) {
			r := res
			best = &r
		}
		if cpio != nil && best != nil && cpio.Old() {
			cpio.Save(&checkpoint.Data{
				Attempt:    attempt,
				NegLogLike: best.F,
				X:          best.X,
			})
		}
	}

	ps, err := phylo.New(t, ali, nil, nil, nil)
	if err != nil {
		log.Fatal(err)
	}

	opts := phylo.Options{
		Mode:         trMode,
		NumLandmarks: *numVS,
		NumIter:      *numVTIter,
		NumProc:      *numProc,
		Driver:       driver,
	}
	if err = ps.ReconstructML(opts); err != nil {
		log.Fatal(err)
	}

	if cpio != nil && best != nil {
		cpio.Save(&checkpoint.Data{
			NegLogLike: best.F,
			X:          best.X,
			Final:      true,
		})
	}

	out := os.Stdout
	if *outF != "" {
		out, err = os.Create(*outF)
		if err != nil {
			log.Fatal("Error creating output file:", err)
		}
		defer out.Close()
	}
	for _, s := range ps.AncestralShapes() {
		if _, err := out.WriteString(s.String()); err != nil {
			log.Fatal("Error writing output:", err)
		}
	}

	log.Noticef("Running time: %v", time.Since(startTime))
}

func main() {
	kingpin.MustParse(app.Parse(os.Args[1:]))

	// logging
	logging.SetFormatter(formatter)

	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		defer f.Close()
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	logging.SetLevel(level, "phyloshape")
	logging.SetLevel(level, "phylo")
	logging.SetLevel(level, "optimize")
	logging.SetLevel(level, "checkpoint")

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	run()
}
