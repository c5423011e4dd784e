package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/rtuport/internal/config"
	"firestige.xyz/rtuport/internal/log"
	"firestige.xyz/rtuport/internal/metrics"
	"firestige.xyz/rtuport/internal/port"
	"firestige.xyz/rtuport/internal/rtu"
	"firestige.xyz/rtuport/internal/transport"
)

var (
	pollRequest   string
	pollAppendCRC bool
	pollCount     int
	pollInterval  time.Duration
	pollTimeout   time.Duration
)

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Send a request repeatedly and print the response frames",
	Long: `Open the configured transport, write the given request and print every
validated response frame.

Examples:
  rtuport poll -c config.yml -r "01 03 00 00 00 0A" --append-crc
  rtuport poll -c config.yml -r 0103000000 0AC5CD -n 0 -i 500ms   # poll forever`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := parseHex(pollRequest)
		if err != nil {
			return err
		}
		if pollAppendCRC {
			req = rtu.AppendChecksum(req)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer cancel()

		p, stopAll, err := openPort(ctx, cfg)
		if err != nil {
			return err
		}
		defer stopAll()

		return runPoll(ctx, p, req, pollOptions{
			Count:    pollCount,
			Interval: pollInterval,
			Timeout:  pollTimeout,
		}, cmd.OutOrStdout())
	},
}

func init() {
	pollCmd.Flags().StringVarP(&pollRequest, "request", "r", "", "request frame as hex (required)")
	pollCmd.Flags().BoolVar(&pollAppendCRC, "append-crc", false, "append the CRC-16 to the request")
	pollCmd.Flags().IntVarP(&pollCount, "count", "n", 1, "number of polls, 0 = until interrupted")
	pollCmd.Flags().DurationVarP(&pollInterval, "interval", "i", time.Second, "delay between polls")
	pollCmd.Flags().DurationVarP(&pollTimeout, "timeout", "t", time.Second, "time to wait for each response")
	pollCmd.MarkFlagRequired("request")
}

// framePort is the part of port.Port the poll loop needs.
type framePort interface {
	Write(req []byte) error
	Frames() <-chan rtu.Frame
	Shape() rtu.Shape
}

type pollOptions struct {
	Count    int
	Interval time.Duration
	Timeout  time.Duration
}

// openPort builds the transport, port and optional metrics server from cfg.
func openPort(ctx context.Context, cfg *config.GlobalConfig) (*port.Port, func(), error) {
	tr, err := transport.New(cfg.Transport.Type, cfg.Transport.Options)
	if err != nil {
		return nil, nil, err
	}
	policy, err := rtu.ParseOverflowPolicy(cfg.Framer.OverflowPolicy)
	if err != nil {
		return nil, nil, err
	}

	var srv *metrics.Server
	if cfg.Metrics.Enabled {
		srv = metrics.NewServer(cfg.Metrics.Listen, cfg.Metrics.Path)
		if err := srv.Start(ctx); err != nil {
			return nil, nil, err
		}
	}

	p := port.New(tr, port.Options{
		Name:       cfg.Transport.Type,
		Assembler:  rtu.AssemblerOptions{MaxBuffer: cfg.Framer.MaxBuffer, Overflow: policy},
		IdleReset:  cfg.Framer.IdleReset,
		FrameQueue: cfg.Framer.FrameQueue,
	})
	if err := p.Open(ctx); err != nil {
		if srv != nil {
			_ = srv.Stop(context.Background())
		}
		return nil, nil, err
	}

	stop := func() {
		if err := p.Close(); err != nil {
			log.GetLogger().WithError(err).Warn("failed to close port")
		}
		if srv != nil {
			_ = srv.Stop(context.Background())
		}
	}
	return p, stop, nil
}

// runPoll writes req Count times and prints the frame answering each write.
// Frames tagged with an older request sequence are skipped.
func runPoll(ctx context.Context, p framePort, req []byte, opts pollOptions, out io.Writer) error {
	logger := log.GetLogger()
	missed := 0

	for i := 0; opts.Count == 0 || i < opts.Count; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(opts.Interval):
			}
		}

		if err := p.Write(req); err != nil {
			return err
		}
		seq := p.Shape().Seq

		if !waitFrame(ctx, p, seq, opts.Timeout, out) {
			if ctx.Err() != nil {
				return nil
			}
			missed++
			logger.WithField("seq", seq).Warn("no response before timeout")
			fmt.Fprintf(out, "#%d timeout\n", seq)
		}
	}

	if missed > 0 {
		return fmt.Errorf("%d poll(s) timed out", missed)
	}
	return nil
}

func waitFrame(ctx context.Context, p framePort, seq uint64, timeout time.Duration, out io.Writer) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return false
		case <-timer.C:
			return false
		case f, ok := <-p.Frames():
			if !ok {
				return false
			}
			if f.Seq != seq {
				continue
			}
			if f.IsException() {
				fmt.Fprintf(out, "#%d exception unit=%d function=0x%02X code=0x%02X\n",
					f.Seq, f.UnitID(), f.Function(), f.ExceptionCode())
			} else {
				fmt.Fprintf(out, "#%d %s\n", f.Seq, f.Hex())
			}
			return true
		}
	}
}
