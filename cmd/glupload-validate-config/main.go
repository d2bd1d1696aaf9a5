package main

import (
	"fmt"
	"log"
	"os"

	"github.com/fosdem/glupload/lib/caps"
	"github.com/fosdem/glupload/lib/config"
	"github.com/fosdem/glupload/lib/encdec"
	"github.com/fosdem/glupload/lib/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatalf("Usage: %s <config file>", os.Args[0])
	}
	cfg, err := config.Parse(os.Args[1])
	if err != nil {
		fmt.Printf("Config invalid: %s\n", err)
		os.Exit(1)
	}

	fmt.Print("Config valid!\n\n")
	fmt.Print(cfg)

	info := sourceInfo(cfg.Source)
	if info == nil {
		fmt.Print("\nThe source format is only known once the source runs\n")
		return
	}
	info.Framerate = caps.Fraction{Num: cfg.Source.Framerate, Den: 1}
	in := pipeline.InputCaps(info, cfg.Source.Memory)
	filter, _ := cfg.Output.Filter()
	out, err := pipeline.Negotiate(nil, in, filter)
	if err != nil {
		fmt.Printf("\n%s\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nUpload:\n  %s\n  -> %s\n", in, out)
}

// sourceInfo is the frame layout of sources that declare it up front.
func sourceInfo(src *config.SourceCfg) *encdec.VideoInfo {
	var frames *config.FrameCfg
	switch s := src.Cfg.(type) {
	case *config.RawSourceCfg:
		frames = &s.FrameCfg
	case *config.CommandSourceCfg:
		frames = &s.FrameCfg
	case *config.ImgSourceCfg:
		if s.Path != "" {
			return nil
		}
		frames = &config.FrameCfg{Format: "RGBA", Width: s.Width, Height: s.Height}
	default:
		return nil
	}
	info, err := frames.Info()
	if err != nil {
		return nil
	}
	return info
}
