// Command example sums 1..6400, plain and doubled, on every backend.
//
// Set GUDAPAR_BACKEND to run on a single backend only, e.g.
//
//	GUDAPAR_BACKEND=gpu:sm=4 go run ./cmd/example -v=2
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/LynnColeArt/gudapar/accel"
	"github.com/LynnColeArt/gudapar/reduce"
	"github.com/LynnColeArt/gudapar/seq"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"
)

const n = 6400

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	var devices []*accel.Device
	if _, found := os.LookupEnv(accel.ConfigEnvVar); found {
		devices = append(devices, must.M1(accel.New()))
	} else {
		devices = accel.Devices()
	}

	// 1, 2, ..., n
	src := seq.Iota[int64]{Start: 1, N: n}
	add := func(a, b int64) int64 { return a + b }
	for _, dev := range devices {
		fmt.Println(dev.Describe())
		q := dev.NewQueue()

		sum := must.M1(reduce.Reduce[int64](dev, q, n, src, add))
		doubled := must.M1(reduce.TransformReduce[int64, int64](dev, q, n, src,
			func(x int64) int64 { return 2 * x }, add))
		must.M(q.Close())

		fmt.Printf("  sum(1..%d)      = %d\n", n, sum)
		fmt.Printf("  sum(2*(1..%d))  = %d\n", n, doubled)
		if sum != n*(n+1)/2 || doubled != n*(n+1) {
			klog.Fatalf("wrong result on %s", dev)
		}
	}
}
