package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/sptdl/internal/formatter"
	"github.com/desertthunder/sptdl/internal/services"
	"github.com/desertthunder/sptdl/internal/ui"
	"github.com/urfave/cli/v3"
)

// Tracks resolves a reference and prints or exports its track list without downloading.
func (r *Runner) Tracks(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	input, err := r.referenceArg(cmd)
	if err != nil {
		return err
	}
	ref, err := services.ParseReference(input)
	if err != nil {
		return err
	}

	provider, err := r.metadataProvider(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("resolving tracks", "ref", ref.String(), "provider", provider.Name())
	tracks, err := provider.Resolve(ctx, ref)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", ref, err)
	}
	list := formatter.TrackList{Reference: ref.String(), Tracks: tracks}

	if path := cmd.String("output"); path != "" || cmd.Bool("save") {
		written, err := formatter.WriteExport(list, format, path)
		if err != nil {
			return err
		}
		r.logger.Info("export written", "path", written, "tracks", len(tracks))
		r.writePlain("%s %d tracks to %s\n", ui.Success("✓ Exported"), len(tracks), written)
		return nil
	}

	data, err := formatter.Render(list, format)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", format, err)
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
