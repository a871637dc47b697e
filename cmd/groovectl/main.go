// groovectl is the command line operator client for the groovelink
// bridge: it issues JSON-RPC calls against the running Bitwig project.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/groovelink/groovelink/internal/client"
	"github.com/groovelink/groovelink/internal/logx"
	"github.com/groovelink/groovelink/internal/wire"
)

var version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `groovectl: control Bitwig Studio through the groovelink bridge

Usage: groovectl <command> [flags]

Commands:
  info          show Bitwig and controller extension information
  tracks        list tracks in the current project
  scenes        list scenes in the current project
  status        check whether Bitwig is connected to the bridge
  create-track  create a track, streaming progress
  version       print version and exit
`)
}

type options struct {
	host    string
	port    int
	timeout time.Duration
	verbose bool
}

func bindCommon(fs *flag.FlagSet) *options {
	opts := &options{}
	fs.StringVar(&opts.host, "host", envOr("BITWIG_HOST", "localhost"), "bridge host")
	fs.IntVar(&opts.port, "port", envIntOr("BITWIG_RPC_PORT", 8418), "bridge operator port")
	fs.DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "per-call timeout")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	return opts
}

func (o *options) dial() (*client.Client, error) {
	if o.verbose {
		logx.Configure("debug")
	} else {
		logx.Configure("warn")
	}
	c, err := client.Dial(fmt.Sprintf("%s:%d", o.host, o.port), o.timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to bridge at %s:%d (is groovelink running?): %w", o.host, o.port, err)
	}
	return c, nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "info":
		err = cmdJSON("info", "info.get", os.Args[2:])
	case "tracks":
		err = cmdTracks(os.Args[2:])
	case "scenes":
		err = cmdJSON("scenes", "list.scenes", os.Args[2:])
	case "status":
		err = cmdStatus(os.Args[2:])
	case "create-track":
		err = cmdCreateTrack(os.Args[2:])
	case "version":
		fmt.Printf("groovectl %s\n", version)
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// cmdJSON runs a parameterless call and pretty-prints the result.
func cmdJSON(name, method string, args []string) error {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	opts := bindCommon(fs)
	_ = fs.Parse(args)
	c, err := opts.dial()
	if err != nil {
		return err
	}
	defer c.Close()
	result, err := c.Call(method, nil)
	if err != nil {
		return err
	}
	var buf any
	if err := json.Unmarshal(result, &buf); err != nil {
		return err
	}
	out, _ := json.MarshalIndent(buf, "", "  ")
	fmt.Println(string(out))
	return nil
}

type track struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Type   string  `json:"type"`
	Volume float64 `json:"volume"`
	Pan    float64 `json:"pan"`
	Mute   bool    `json:"mute"`
	Solo   bool    `json:"solo"`
	Arm    bool    `json:"arm"`
}

func cmdTracks(args []string) error {
	fs := flag.NewFlagSet("tracks", flag.ExitOnError)
	opts := bindCommon(fs)
	_ = fs.Parse(args)
	c, err := opts.dial()
	if err != nil {
		return err
	}
	defer c.Close()
	result, err := c.Call("list.tracks", nil)
	if err != nil {
		return err
	}
	var tracks []track
	if err := json.Unmarshal(result, &tracks); err != nil {
		return fmt.Errorf("unexpected track listing: %w", err)
	}
	rows := make([][]string, 0, len(tracks))
	for _, t := range tracks {
		rows = append(rows, []string{
			strconv.Itoa(t.ID), t.Name, t.Type,
			fmt.Sprintf("%.3f", t.Volume), fmt.Sprintf("%.3f", t.Pan),
			flags(t.Mute, t.Solo, t.Arm),
		})
	}
	fmt.Println(renderTable(
		[]string{"ID", "Name", "Type", "Volume", "Pan", "M/S/R"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	return nil
}

func flags(mute, solo, arm bool) string {
	mark := func(on bool, c string) string {
		if on {
			return c
		}
		return "-"
	}
	return mark(mute, "M") + mark(solo, "S") + mark(arm, "R")
}

func cmdStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	opts := bindCommon(fs)
	_ = fs.Parse(args)
	c, err := opts.dial()
	if err != nil {
		return err
	}
	defer c.Close()
	if _, err := c.Call("info.get", nil); err != nil {
		fmt.Println("Bitwig connected: false")
		return err
	}
	fmt.Println("Bitwig connected: true")
	return nil
}

func cmdCreateTrack(args []string) error {
	fs := flag.NewFlagSet("create-track", flag.ExitOnError)
	opts := bindCommon(fs)
	name := fs.String("name", "", "track name (required)")
	trackType := fs.String("type", "instrument", "track type: instrument, audio, or effect")
	var devices []string
	fs.Func("device", "device to load on the track (repeatable)", func(v string) error {
		devices = append(devices, v)
		return nil
	})
	_ = fs.Parse(args)
	if *name == "" {
		return fmt.Errorf("create-track: -name is required")
	}

	// Device loading is slow; scale the deadline with the request. The
	// progress stream refreshes it frame by frame anyway.
	timeout := opts.timeout + time.Duration(len(devices))*2*time.Second
	if opts.verbose {
		logx.Configure("debug")
	} else {
		logx.Configure("warn")
	}
	c, err := client.Dial(fmt.Sprintf("%s:%d", opts.host, opts.port), timeout)
	if err != nil {
		return fmt.Errorf("cannot connect to bridge at %s:%d (is groovelink running?): %w", opts.host, opts.port, err)
	}
	defer c.Close()

	fmt.Printf("Creating track: %s (%s)\n", *name, *trackType)
	params := map[string]any{"name": *name, "type": *trackType, "devices": devices}
	result, err := c.CallWithProgress("track.create", params, func(n wire.Notification) {
		var p struct {
			Step    int    `json:"step"`
			Total   int    `json:"total"`
			Message string `json:"message"`
		}
		if json.Unmarshal(n.Params, &p) != nil {
			return
		}
		fmt.Printf("  [%d/%d] %s\n", p.Step, p.Total, p.Message)
	})
	if err != nil {
		return err
	}
	var summary struct {
		Devices int `json:"devices"`
	}
	if json.Unmarshal(result, &summary) == nil {
		fmt.Printf("  done, %d devices loaded\n", summary.Devices)
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
