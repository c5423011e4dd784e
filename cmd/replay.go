package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/rtuport/internal/replay"
	"firestige.xyz/rtuport/internal/rtu"
)

var replayDevicePort uint16

var replayCmd = &cobra.Command{
	Use:   "replay <capture.pcap>",
	Short: "Extract response frames from a pcap capture of RTU-over-TCP/UDP traffic",
	Long: `Replay a capture taken between a client and a serial gateway. Payloads sent
to the gateway port are treated as requests, payloads from it as raw response
bytes, and every validated frame is printed with its capture timestamp.

Examples:
  rtuport replay gateway.pcap                 # gateway on port 4001
  rtuport replay -p 502 capture.pcap`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		policy, err := rtu.ParseOverflowPolicy(cfg.Framer.OverflowPolicy)
		if err != nil {
			return err
		}
		opts := replay.Options{
			DevicePort: replayDevicePort,
			Assembler:  rtu.AssemblerOptions{MaxBuffer: cfg.Framer.MaxBuffer, Overflow: policy},
		}
		return runReplay(args[0], opts, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().Uint16VarP(&replayDevicePort, "port", "p", 4001, "TCP/UDP port of the serial gateway")
}

func runReplay(path string, opts replay.Options, out io.Writer) error {
	stats, err := replay.New(opts).File(path, func(ev replay.Event) error {
		kind := "frame"
		if ev.Frame.IsException() {
			kind = "exception"
		}
		_, err := fmt.Fprintf(out, "%s %s %s request=%X\n",
			ev.Timestamp.Format("15:04:05.000000"), kind, ev.Frame.Hex(), ev.Request)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "packets=%d requests=%d response_bytes=%d frames=%d exceptions=%d skipped=%d\n",
		stats.Packets, stats.Requests, stats.ResponseBytes, stats.Frames, stats.Exceptions, stats.Skipped)
	return nil
}
