package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/rtuport/internal/rtu"
)

var predictCmd = &cobra.Command{
	Use:   "predict <request-hex>",
	Short: "Print the expected response shape of a request",
	Long: `Predict the unit id, function code and exact byte length of the response
to an already-built RTU request.

Examples:
  rtuport predict "01 03 00 00 00 0A C5 CD"   # read 10 holding registers -> 25 bytes
  rtuport predict 010600010003                # write single register -> 8 bytes`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPredict(strings.Join(args, " "), cmd.OutOrStdout())
	},
}

func runPredict(input string, out io.Writer) error {
	req, err := parseHex(input)
	if err != nil {
		return err
	}

	shape, err := rtu.Predict(req)
	switch {
	case errors.Is(err, rtu.ErrUnrecognizedFunction):
		fmt.Fprintf(out, "unit=%d function=0x%02X length=unknown (no frame will be extracted)\n",
			shape.UnitID, shape.Function)
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(out, "unit=%d function=0x%02X length=%d exception_length=%d\n",
		shape.UnitID, shape.Function, shape.Length, rtu.ExceptionLen)
	return nil
}
