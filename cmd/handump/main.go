// handump decodes captured HAN port traffic offline: every valid frame in
// the input becomes one JSON line on stdout. With -encode it does the
// reverse, framing a hex APDU payload into wire bytes for test vectors.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/sognelys/hanport/pkg/hanport"
	"github.com/sognelys/hanport/pkg/hanport/source"
	"github.com/sognelys/hanport/pkg/hdlc"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.InfoLevel)
	inFile := flag.String("in", "", "binary capture file (default: hex on stdin or args)")
	hexIn := flag.Bool("hex", false, "treat input file as hex text")
	encode := flag.String("encode", "", "frame the given hex APDU payload and print wire hex")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	if *verbose {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	}

	if *encode != "" {
		payload, err := hex.DecodeString(strings.Map(dropSpace, *encode))
		if err != nil {
			log.Fatal().Err(err).Msg("bad hex payload")
		}
		fb := hdlc.FrameBuilder{Destination: 0x10, Source: 0x01, Control: 0x13}
		fmt.Println(hex.EncodeToString(fb.Encode(payload)))
		return
	}

	data, err := readInput(*inFile, *hexIn, flag.Args())
	if err != nil {
		log.Fatal().Err(err).Msg("error reading input")
	}

	reader := hanport.NewReader(source.NewBuffer(data, 0),
		hanport.WithLogger(log.Logger),
		hanport.WithSourceKind("buffer"))

	enc := json.NewEncoder(os.Stdout)
	decoded := 0
	for {
		t, err := reader.Next(context.Background())
		if err != nil {
			if hanport.IsDecodeError(err) {
				log.Warn().Err(err).Msg("undecodable frame")
				continue
			}
			if !errors.Is(err, io.EOF) {
				log.Fatal().Err(err).Msg("decode aborted")
			}
			break
		}
		if err := enc.Encode(t); err != nil {
			log.Fatal().Err(err).Msg("error writing telegram")
		}
		decoded++
	}

	stats := reader.Stats()
	log.Info().
		Int("telegrams", decoded).
		Uint64("rejected", stats.FramesRejected).
		Uint64("bytes", stats.BytesRead).
		Msg("done")
	if decoded == 0 {
		os.Exit(1)
	}
}

// readInput gathers capture bytes from -in, the argument list, or stdin.
// Anything that is not a raw binary file is parsed as whitespace-tolerant
// hex.
func readInput(inFile string, hexIn bool, args []string) ([]byte, error) {
	if inFile != "" {
		data, err := os.ReadFile(inFile)
		if err != nil {
			return nil, err
		}
		if hexIn {
			return hex.DecodeString(strings.Map(dropSpace, string(data)))
		}
		return data, nil
	}
	if len(args) > 0 {
		return hex.DecodeString(strings.Map(dropSpace, strings.Join(args, "")))
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.Map(dropSpace, string(data)))
}

func dropSpace(r rune) rune {
	if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
		return -1
	}
	return r
}
