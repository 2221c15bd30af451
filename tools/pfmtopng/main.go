package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/kpfaulkner/pfm-go/cache"
	"github.com/kpfaulkner/pfm-go/core"
	"github.com/kpfaulkner/pfm-go/imageformats"
	"github.com/kpfaulkner/pfm-go/options"
	"github.com/kpfaulkner/pfm-go/util"
	"github.com/nfnt/resize"
	"github.com/pkg/profile"
	log "github.com/sirupsen/logrus"
)

func main() {
	infile := flag.String("i", "", "input pfm file")
	outfile := flag.String("o", "", "output png file")
	previewOnly := flag.Bool("preview", false, "write a tone mapped preview instead of the full image")
	maxWidth := flag.Uint("maxw", options.DefaultPreviewMaxWidth, "maximum preview width")
	maxHeight := flag.Uint("maxh", options.DefaultPreviewMaxHeight, "maximum preview height")
	clampGray := flag.Bool("clampgray", false, "clamp grayscale samples like colour ones")
	honourScale := flag.Bool("scaleorder", false, "read big endian payloads when the scale is positive")
	cacheMB := flag.Int64("cachemb", 0, "image cache size in MB, 0 for unbounded")
	interp := flag.String("interp", "bilinear", "preview interpolation: nearest, bilinear, bicubic, lanczos3")
	cpuProfile := flag.Bool("profile", false, "write a CPU profile to the current directory")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *infile == "" || *outfile == "" {
		fmt.Printf("both input and output files must be specified\n")
		os.Exit(1)
	}

	if *cpuProfile {
		defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	}

	opts := options.NewPFMOptions(&options.PFMOptions{
		Debug:                *verbose,
		ClampGrayscale:       *clampGray,
		HonourScaleByteOrder: *honourScale,
		CacheMaxBytes:        *cacheMB << 20,
		PreviewMaxWidth:      *maxWidth,
		PreviewMaxHeight:     *maxHeight,
		PreviewInterpolation: interpolation(*interp),
	})
	if opts.Debug {
		log.SetLevel(log.DebugLevel)
	}

	pfm, err := core.NewPFMDecoder(core.WithOptions(opts))
	if err != nil {
		log.Fatalf("boomage %v", err)
	}

	img := &cache.Image{}
	buf := new(bytes.Buffer)
	start := time.Now()
	if *previewOnly {
		p, err := pfm.DecodePreview(img, *infile)
		if err != nil {
			fmt.Printf("Error decoding: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("decoding took %d ms\n", time.Since(start).Milliseconds())
		fmt.Printf("preview %d x %d from %d x %d\n", p.Width, p.Height, img.Width, img.Height)
		if err := imageformats.WritePreviewPNG(p, buf); err != nil {
			log.Fatalf("boomage %v", err)
		}
	} else {
		if err := pfm.Decode(img, *infile); err != nil {
			fmt.Printf("Error decoding: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("decoding took %d ms\n", time.Since(start).Milliseconds())
		fmt.Printf("image %d x %d\n", img.Width, img.Height)
		if err := imageformats.WritePNG(img.Full(), buf); err != nil {
			log.Fatalf("boomage %v", err)
		}
	}

	if err := os.WriteFile(*outfile, buf.Bytes(), 0666); err != nil {
		log.Fatalf("boomage %v", err)
	}
	log.Debugf("pool metrics %v", util.GetPoolMetrics())
}

func interpolation(name string) resize.InterpolationFunction {
	switch name {
	case "nearest":
		return resize.NearestNeighbor
	case "bicubic":
		return resize.Bicubic
	case "lanczos3":
		return resize.Lanczos3
	default:
		return resize.Bilinear
	}
}
