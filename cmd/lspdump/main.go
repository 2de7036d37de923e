package main

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marco-hartmann/verible/lsp"
)

var (
	addr       string
	bufferSize int
	showBodies bool
)

var rootCmd = &cobra.Command{
	Use:   "lspdump",
	Short: "Dump Content-Length framed messages from a byte stream",
	Long: `lspdump splits a Content-Length framed byte stream (the framing used by
language-server JSON-RPC channels) into messages and prints one summary line
per message. It reads from stdin by default, or from a TCP endpoint with
--addr. Bodies are treated as opaque bytes; use --bodies to print them raw.`,
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "", "TCP address to read from (default: stdin)")
	rootCmd.Flags().IntVar(&bufferSize, "buffer-size", 1<<20, "buffer capacity in bytes; bounds the largest readable message")
	rootCmd.Flags().BoolVarP(&showBodies, "bodies", "b", false, "print full message bodies")
}

func newLogger() *zap.SugaredLogger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(encoderConfig),
		zapcore.AddSync(os.Stderr),
		zapcore.InfoLevel,
	)
	return zap.New(core).Sugar()
}

func run(cmd *cobra.Command, args []string) error {
	sugar := newLogger()
	defer sugar.Sync()

	var source io.ReadCloser = os.Stdin
	if addr != "" {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			sugar.Errorf("dial %s: %v", addr, err)
			return err
		}
		sugar.Infof("connected to %s", addr)
		source = conn
	}
	defer source.Close()

	splitter := lsp.NewMessageStreamSplitter(bufferSize)
	splitter.SetMessageProcessor(func(header, body []byte) {
		// MessageCount is incremented after the processor returns.
		fmt.Printf("#%d  header %d bytes, body %d bytes\n",
			splitter.MessageCount()+1, len(header), len(body))
		if showBodies {
			fmt.Printf("%s\n", body)
		}
	})

	for {
		err := splitter.PullFrom(source.Read)
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF):
			sugar.Infof("stream complete: %d messages, largest body %d bytes",
				splitter.MessageCount(), splitter.LargestBodySeen())
			return nil
		default:
			sugar.Errorf("stream failed after %d messages: %v", splitter.MessageCount(), err)
			return err
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
