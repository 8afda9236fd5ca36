// Command gudapar-bench times reduce, transform-reduce and transform on every
// backend and prints a table of the throughputs.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/LynnColeArt/gudapar"
	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/reduce"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/LynnColeArt/gudapar/transform"
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/janpfeifer/must"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

var (
	flagSizes    = flag.String("sizes", "1000,100000,10000000", "Comma-separated problem sizes")
	flagBackends = flag.String("backends", strings.Join(accel.Backends(), ","), "Comma-separated backend configurations")
	flagReps     = flag.Int("reps", 5, "Repetitions per measurement; the best one is reported")
	flagUnroll   = flag.Bool("unroll", false, "Unroll the per-thread fold loops")
)

type benchmark struct {
	name string
	run  func(dev *accel.Device, q *accel.Queue, data []float32, out []float32) error
}

var (
	normalStyle       = lipgloss.NewStyle().Padding(0, 1)
	rightAlignedStyle = lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
	headerStyle       = lipgloss.NewStyle().Bold(true).Padding(0, 1)
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var sizes []int
	for _, s := range strings.Split(*flagSizes, ",") {
		sizes = append(sizes, must.M1(strconv.Atoi(strings.TrimSpace(s))))
	}
	var devices []*accel.Device
	for _, config := range strings.Split(*flagBackends, ",") {
		devices = append(devices, must.M1(accel.NewWithConfig(strings.TrimSpace(config))))
	}

	opts := []reduce.Option{reduce.WithUnroll(*flagUnroll)}
	benchmarks := []benchmark{
		{"reduce(+)", func(dev *accel.Device, q *accel.Queue, data, _ []float32) error {
			_, err := reduce.Reduce[float32](dev, q, len(data), seq.Slice[float32](data),
				func(a, b float32) float32 { return a + b }, opts...)
			return err
		}},
		{"reduce(max)", func(dev *accel.Device, q *accel.Queue, data, _ []float32) error {
			_, err := reduce.Reduce[float32](dev, q, len(data), seq.Slice[float32](data),
				func(a, b float32) float32 { return max(a, b) }, opts...)
			return err
		}},
		{"transform-reduce(x², +)", func(dev *accel.Device, q *accel.Queue, data, _ []float32) error {
			_, err := reduce.TransformReduce[float32, float64](dev, q, len(data), seq.Slice[float32](data),
				func(x float32) float64 { return float64(x) * float64(x) },
				func(a, b float64) float64 { return a + b }, opts...)
			return err
		}},
		{"transform(2x)", func(dev *accel.Device, q *accel.Queue, data, out []float32) error {
			return transform.Transform[float32, float32](dev, q, len(data), seq.Slice[float32](data), seq.Slice[float32](out),
				func(x float32) float32 { return 2 * x })
		}},
	}

	version, _ := gudapar.Version()
	fmt.Printf("gudapar %s, %s/%s, %d CPUs, %s\n", version, runtime.GOOS, runtime.GOARCH, runtime.NumCPU(),
		accel.DetectCPUFeatures())

	bar := progressbar.NewOptions(len(devices)*len(sizes)*len(benchmarks),
		progressbar.OptionSetDescription("Benchmarking: "),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("runs"),
		progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		progressbar.OptionClearOnFinish())

	table := lgtable.New().
		Border(lipgloss.RoundedBorder()).
		Headers("Device", "Algorithm", "N", "Input", "Best time", "Elements/s").
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == lgtable.HeaderRow:
				return headerStyle
			case col >= 2:
				return rightAlignedStyle
			default:
				return normalStyle
			}
		})

	for _, n := range sizes {
		data := make([]float32, n)
		for i := range data {
			data[i] = float32(i%1000) / 1000
		}
		out := make([]float32, n)
		for _, dev := range devices {
			q := dev.NewQueue()
			for _, b := range benchmarks {
				best := time.Duration(1<<63 - 1)
				for range *flagReps {
					start := time.Now()
					if err := b.run(dev, q, data, out); err != nil {
						klog.Fatalf("%s on %s with n=%d failed: %+v", b.name, dev, n, err)
					}
					best = min(best, time.Since(start))
				}
				klog.V(1).Infof("%s on %s, n=%d: %s", b.name, dev, n, best)
				table.Row(dev.String(), b.name, humanize.Comma(int64(n)),
					humanize.IBytes(uint64(n)*4), best.String(),
					humanize.SIWithDigits(float64(n)/best.Seconds(), 2, ""))
				_ = bar.Add(1)
			}
			must.M(q.Close())
		}
	}
	_ = bar.Finish()
	fmt.Println(table.String())
}
