package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"openfront/engine/internal/config"
	"openfront/engine/internal/feed"
	"openfront/engine/internal/game"
	"openfront/engine/internal/wire"
)

func runTail(args []string, out io.Writer) int {
	flags := flag.NewFlagSet("tail", flag.ContinueOnError)
	addr := flags.String("addr", "localhost"+config.DefaultGRPCAddr, "gRPC address of the update feed")
	from := flags.Uint64("from", 0, "First stream sequence to read; 0 resumes")
	subscriber := flags.String("subscriber", "", "Subscriber ID to resume acknowledgements under")
	if err := flags.Parse(args); err != nil {
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		fmt.Fprintln(os.Stderr, "dial:", err)
		return 1
	}
	defer conn.Close()
	if *subscriber != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, feed.SubscriberHeader, *subscriber)
	}

	err = tail(ctx, feed.NewUpdateFeedClient(conn), *from, out)
	if err != nil && status.Code(err) != codes.Canceled && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

// tail prints one summary line per received tick until the stream ends.
func tail(ctx context.Context, client *feed.UpdateFeedClient, from uint64, out io.Writer) error {
	stream, err := client.StreamUpdates(ctx, from)
	if err != nil {
		return err
	}
	header, err := stream.Header()
	if err != nil {
		return err
	}
	encoding := ""
	if values := header.Get(feed.EncodingHeader); len(values) > 0 {
		encoding = values[0]
	}
	compressor, err := feed.CompressorByName(encoding)
	if err != nil {
		return err
	}

	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		payload, err := compressor.Decompress(msg.GetValue())
		if err != nil {
			return err
		}
		batch, err := wire.Decode(payload)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "tick %d: %d tiles, %d units, %d players", batch.Tick,
			batch.Count(game.UpdateTile), batch.Count(game.UpdateUnit), batch.Count(game.UpdatePlayer))
		if hashes, err := wire.DecodeHashes(payload); err == nil && len(hashes) > 0 {
			fmt.Fprintf(out, ", hash %#x", hashes[0].Hash)
		}
		fmt.Fprintln(out)
	}
}
