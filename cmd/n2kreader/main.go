package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aldas/go-marine-logger/actisense"
	"github.com/aldas/go-marine-logger/canboat"
	"github.com/aldas/go-marine-logger/internal/logging"
	"github.com/aldas/go-marine-logger/n2k"
	"github.com/aldas/go-marine-logger/socketcan"
	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

func main() {
	onlyRead := flag.Bool("read-only", false, "only reads device/file and does not write into it")
	noShowPGN := flag.Bool("np", false, "do not print decoded PGNs")
	noNodeTable := flag.Bool("dnt", false, "disable node table (address claim tracking)")
	isFile := flag.Bool("is-file", false, "consider device as ordinary file")
	inputFormat := flag.String("input-format", "ngt", "in which format frames are read (ngt, rawascii, ebl, canboat, socketcan)")
	deviceAddr := flag.String("device", "/dev/ttyUSB0", "path to Actisense device, log file or SocketCAN interface name")
	pgnFilter := flag.String("filter", "", "comma separated list of PGNs to filter")
	csvFieldsRaw := flag.String("csv-fields", "", "list of PGNs and their fields to be written in CSV. `129025:_time_ms,latitude,longitude;127250:_src,heading`")
	outputFormat := flag.String("output-format", "text", "in which format frames are printed out (text, json, canboat, hex, base64)")
	baudRate := flag.Int("baud", 115200, "device baud rate.")
	verbose := flag.Int("v", 0, "log verbosity level")
	flag.Parse()

	logger := logging.New("n2kreader", *verbose)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *deviceAddr == "" {
		logger.Fatal().Msg("missing device path")
	}

	var err error
	var filter []uint32
	if *pgnFilter != "" {
		filter, err = string2intSlice(*pgnFilter)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid pgn filter given")
		}
		fmt.Printf("# Using PGN filter: %v\n", filter)
	}

	switch *inputFormat {
	case "ngt", "rawascii", "ebl", "canboat", "socketcan":
	default:
		logger.Fatal().Str("format", *inputFormat).Msg("unknown input format type given")
	}

	csvFields, err := parseCSVFieldsRaw(*csvFieldsRaw)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid csv fields given")
	}
	for _, cf := range csvFields {
		filter = append(filter, cf.PGN)
	}
	isCSV := len(csvFields) > 0
	csvOut := newCSVFiles(".")
	defer csvOut.Close()

	switch *outputFormat {
	case "text", "json", "canboat", "hex", "base64":
	default:
		logger.Fatal().Str("format", *outputFormat).Msg("unknown output format type given")
	}

	device, err := openDevice(*inputFormat, *deviceAddr, *isFile, *baudRate, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not open device")
	}
	defer device.Close()

	if !*isFile {
		fmt.Printf("# Initializing device: %v\n", *deviceAddr)
		if err := device.Initialize(); err != nil {
			logger.Fatal().Err(err).Msg("could not initialize device")
		}
	}
	fmt.Printf("# Starting to read device: %v\n", *deviceAddr)

	var nodes *n2k.NodeTable
	if !*noNodeTable {
		nodes = n2k.NewNodeTable()
	}

	writer, canWrite := device.(n2k.FrameWriter)
	if canWrite && !*onlyRead && !*isFile {
		if nodes != nil {
			go func() {
				// After 1 sec delay ask all nodes on bus to send their address claims to learn their NAME values
				select {
				case <-ctx.Done():
					return
				case <-time.After(1 * time.Second):
					fmt.Printf("# Broadcasting ISO Address claim request\n")
					if err := writer.WriteFrame(ctx, n2k.ISORequest(n2k.PGNISOAddressClaim, n2k.AddressGlobal)); err != nil {
						fmt.Printf("# Error at writing: %v\n", err)
					}
				}
			}()
		}
		fmt.Printf("# Starting STDIN process\n")
		go handleSTDIO(ctx, os.Stdin, writer, nodes)
	}

	msgCount := uint64(0)
	errorCountRead := uint64(0)
	for {
		frame, err := device.ReadFrame(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			errorCountRead++
			fmt.Printf("# Error ReadFrame: %v\n", err)
			if errorCountRead > 20 {
				return
			}
			continue
		}
		errorCountRead = 0
		msgCount++
		now := time.Now()

		if nodes != nil {
			node, changed, err := nodes.Process(frame)
			if err != nil {
				fmt.Printf("# Error at node table processing: %v\n", err)
			}
			if changed {
				fmt.Printf("# New or changed Node: source: %v, NAME: %v\n", node.Source, node.NAME)
			}
		}

		if filter != nil && !contains(filter, frame.PGN) {
			continue
		}

		if isCSV {
			if fields, cpgn, ok := csvPGNs(csvFields).Match(frame, now); ok {
				if err := csvOut.Write(cpgn, fields); err != nil {
					logger.Fatal().Err(err).Msg("could not write CSV")
				}
			}
		}

		if *noShowPGN {
			continue
		}
		if err := printFrame(os.Stdout, *outputFormat, frame, now); err != nil {
			logger.Fatal().Err(err).Msg("could not print frame")
		}
	}
	fmt.Printf("# Finishing, number of processed messages: %v\n", msgCount)
}

func openDevice(format string, addr string, isFile bool, baud int, logger zerolog.Logger) (n2k.FrameReader, error) {
	if format == "socketcan" {
		return socketcan.NewDevice(socketcan.DeviceConfig{
			InterfaceName:       addr,
			FastPacketAssembler: n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs),
		}), nil
	}

	var stream io.ReadWriteCloser
	var err error
	if isFile {
		stream, err = os.OpenFile(addr, os.O_RDONLY, 0)
	} else {
		stream, err = serial.OpenPort(&serial.Config{
			Name: addr,
			Baud: baud,
			// ReadTimeout is duration that Read call is allowed to block. Device has different timeout for situation when
			// there is no activity on bus. Can not be smaller than 100ms
			ReadTimeout: 100 * time.Millisecond,
			Size:        8,
		})
	}
	if err != nil {
		return nil, err
	}

	config := actisense.Config{
		ReceiveDataTimeout: 5 * time.Second,
		Logger:             &logger,
	}
	if isFile {
		config.ReceiveDataTimeout = 100 * time.Millisecond
	}

	switch format {
	case "canboat":
		return canboat.NewCanBoatReader(stream), nil
	case "rawascii":
		config.FastPacketAssembler = n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs)
		return actisense.NewRawASCIIDevice(stream, config), nil
	case "ebl":
		config.FastPacketAssembler = n2k.NewFastPacketAssembler(n2k.DefaultFastPacketPGNs)
		return actisense.NewEBLFormatDevice(stream, config), nil
	}
	return actisense.NewBinaryDeviceWithConfig(stream, config), nil
}

func printFrame(w io.Writer, format string, frame n2k.Frame, now time.Time) error {
	var b []byte
	switch format {
	case "text":
		return n2k.Render(w, frame)
	case "json":
		var err error
		b, err = json.Marshal(frame)
		if err != nil {
			return err
		}
	case "canboat":
		b = canboat.Marshal(frame, now)
	case "hex":
		b = []byte(n2k.RawData(n2k.MarshalFrame(frame)).AsHex())
	case "base64":
		b = []byte(base64.StdEncoding.EncodeToString(n2k.MarshalFrame(frame)))
	}
	_, err := fmt.Fprintf(w, "%s\n", b)
	return err
}

func handleSTDIO(ctx context.Context, in io.Reader, device n2k.FrameWriter, nodes *n2k.NodeTable) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "!nodes" {
			if nodes == nil {
				continue
			}
			known := nodes.Nodes()
			fmt.Printf("# Known nodes: %v\n", len(known))
			for _, n := range known {
				fmt.Printf("# node: NAME: %v, source: %v\n", n.NAME, n.Source)
			}
			continue
		}

		var frame n2k.Frame
		if strings.HasPrefix(line, "!addr-claim") {
			frame = n2k.ISORequest(n2k.PGNISOAddressClaim, n2k.AddressGlobal)
		} else {
			var err error
			frame, err = parseLine(line)
			if err != nil {
				fmt.Printf("%v\n", err)
				continue
			}
		}

		if err := device.WriteFrame(ctx, frame); err != nil {
			fmt.Printf("# Error at writing: %v\n", err)
		}
	}
}

func parseLine(line string) (n2k.Frame, error) {
	// Canboat format without timestamp
	// prio, pgn, src, dst, len, data...
	// 6,59904,0,128,3,16,f0,01
	parts := strings.Split(line, ",")
	if len(parts) < 6 {
		return n2k.Frame{}, errors.New("# Error invalid input format")
	}
	frame := n2k.Frame{}
	n, err := parseUint8(parts[0], 0, 7, "priority")
	if err != nil {
		return n2k.Frame{}, err
	}
	frame.Priority = n

	pgn, err := strconv.Atoi(parts[1])
	if err != nil {
		return n2k.Frame{}, fmt.Errorf("# Error parsing PGN, err: %v", err)
	}
	frame.PGN = uint32(pgn)

	if frame.Source, err = parseUint8(parts[2], 0, 255, "src"); err != nil {
		return n2k.Frame{}, err
	}
	if frame.Destination, err = parseUint8(parts[3], 0, 255, "dst"); err != nil {
		return n2k.Frame{}, err
	}

	dataLen, err := strconv.Atoi(parts[4])
	if err != nil {
		return n2k.Frame{}, fmt.Errorf("# Error parsing data length, err: %v", err)
	}
	data, err := hex.DecodeString(strings.Join(parts[5:], ""))
	if err != nil {
		return n2k.Frame{}, fmt.Errorf("# Error decoding hex data, err: %v", err)
	}
	if dataLen < 0 || dataLen > len(data) {
		return n2k.Frame{}, fmt.Errorf("# Error data length %v does not match data", dataLen)
	}
	frame.Data = data[0:dataLen]

	return frame, nil
}

func parseUint8(raw string, min int, max int, name string) (uint8, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("# Error failed to parse %v, err: %w", name, err)
	}
	if n < min || n > max {
		return 0, fmt.Errorf("# Error invalid %v", name)
	}
	return uint8(n), nil
}

func string2intSlice(s string) ([]uint32, error) {
	result := make([]uint32, 0, 10)
	for _, p := range strings.Split(s, ",") {
		pgn, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		result = append(result, uint32(pgn))
	}
	return result, nil
}

func contains[T comparable](elems []T, v T) bool {
	for _, s := range elems {
		if v == s {
			return true
		}
	}
	return false
}
