// Package installer orchestrates the full installer pipeline: open
// the installer source, parse its overlay and script, extract each DAT/MUS
// record, decode every DAT leaf with the matching format decoder, and
// accumulate the results into a single content-addressed archive.
package installer

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/darkages-tools/legacytranscode/archive"
	"github.com/darkages-tools/legacytranscode/dat"
	"github.com/darkages-tools/legacytranscode/decode"
	"github.com/darkages-tools/legacytranscode/decode/colortable"
	"github.com/darkages-tools/legacytranscode/decode/efa"
	"github.com/darkages-tools/legacytranscode/decode/epf"
	"github.com/darkages-tools/legacytranscode/decode/epfanim"
	"github.com/darkages-tools/legacytranscode/decode/hpf"
	"github.com/darkages-tools/legacytranscode/decode/mpf"
	"github.com/darkages-tools/legacytranscode/decode/palette"
	"github.com/darkages-tools/legacytranscode/decode/spf"
	"github.com/darkages-tools/legacytranscode/decode/tilesheet"
	"github.com/darkages-tools/legacytranscode/extract"
	"github.com/darkages-tools/legacytranscode/legacyerr"
	"github.com/darkages-tools/legacytranscode/overlay"
	"github.com/darkages-tools/legacytranscode/progress"
	"github.com/darkages-tools/legacytranscode/sourceio"
	"github.com/darkages-tools/legacytranscode/wisescript"
)

// ArchiveName is the fixed filename Install writes under OutputDir.
const ArchiveName = "assets.legarx"

// versionEntryPath is the archive entry Install uses for the C8 version
// gate; it is never surfaced to decoders.
const versionEntryPath = "VERSION"

// Config bundles everything a single Install run needs.
type Config struct {
	// OutputDir receives the finalized archive and is checked first for a
	// LocalOverrideName installer blob.
	OutputDir string
	// SourceURL is fetched when no local override file is present.
	SourceURL string
	// Version is stamped into the archive and compared against any prior
	// run's stamp for the C8 version gate.
	Version string
	// ResolveViaPE attempts to compute the executable offset from the PE
	// section table instead of DefaultExecutableOffset. Only effective
	// when the source is the local override file.
	ResolveViaPE bool
	// Progress receives (percent, message) updates during extraction. A nil
	// Progress is treated as progress.Nop{}.
	Progress progress.Sink
	// Log receives structured diagnostics. A zero Logger discards output.
	Log zerolog.Logger
}

// Install runs the full pipeline and returns legacyerr.ErrArchiveUpToDate if
// OutputDir already holds an archive stamped with cfg.Version.
func Install(ctx context.Context, cfg Config) error {
	sink := cfg.Progress
	if sink == nil {
		sink = progress.Nop{}
	}
	log := cfg.Log

	archivePath := filepath.Join(cfg.OutputDir, ArchiveName)
	if upToDate, err := versionMatches(archivePath, cfg.Version); err != nil {
		return err
	} else if upToDate {
		return legacyerr.ErrArchiveUpToDate
	}

	executableOffset := resolveExecutableOffset(cfg, log)

	r, err := sourceio.Open(ctx, cfg.OutputDir, cfg.SourceURL)
	if err != nil {
		return err
	}
	defer r.Close()

	header, script, err := overlay.Parse(r, executableOffset, log)
	if err != nil {
		return err
	}
	ops, err := wisescript.Walk(script)
	if err != nil {
		return err
	}
	dataRegionOrigin := int64(header.EOFOffset) - int64(extract.DataRegionOrigin(ops))

	var totalCompressed uint64
	for _, op := range ops {
		if rec, ok := op.(wisescript.CreateFile); ok && extract.Extractable(rec.Path) {
			if span := int64(rec.DeflateEnd) - int64(rec.DeflateStart) - 4; span > 0 {
				totalCompressed += uint64(span)
			}
		}
	}

	writer, err := archive.NewWriter(archivePath)
	if err != nil {
		return err
	}
	run := &installRun{
		r:                r,
		writer:           writer,
		dataRegionOrigin: dataRegionOrigin,
		epfAcc:           epfanim.NewAccumulator(),
		log:              log,
		sink:             sink,
		progress:         &progress.Extraction{Total: totalCompressed},
	}

	if err := run.processOps(ops); err != nil {
		writer.Abort()
		return err
	}

	animArtifacts, err := run.epfAcc.Finalize()
	if err != nil {
		writer.Abort()
		return err
	}
	for _, a := range animArtifacts {
		if err := writer.AddEntry(a.LogicalPath, a.Bytes); err != nil {
			writer.Abort()
			return err
		}
	}

	if err := writer.AddEntry(versionEntryPath, []byte(cfg.Version)); err != nil {
		writer.Abort()
		return err
	}
	if err := writer.Finalize(); err != nil {
		return err
	}
	sink.Report(1.0, "done")
	return nil
}

func versionMatches(archivePath, version string) (bool, error) {
	ar, err := archive.Open(archivePath)
	if err != nil {
		return false, nil
	}
	defer ar.Close()
	data, ok, err := ar.ReadEntry(versionEntryPath)
	if err != nil || !ok {
		return false, nil
	}
	return string(data) == version, nil
}

func resolveExecutableOffset(cfg Config, log zerolog.Logger) int64 {
	if !cfg.ResolveViaPE {
		return overlay.DefaultExecutableOffset
	}
	localPath := filepath.Join(cfg.OutputDir, sourceio.LocalOverrideName)
	f, err := os.Open(localPath)
	if err != nil {
		log.Debug().Err(err).Msg("installer: no local override file for pe-aware offset, using default")
		return overlay.DefaultExecutableOffset
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return overlay.DefaultExecutableOffset
	}
	off, err := overlay.PEExecutableOffset(f, stat.Size())
	if err != nil {
		log.Warn().Err(err).Msg("installer: pe-aware offset resolution failed, using default")
		return overlay.DefaultExecutableOffset
	}
	return off
}

// installRun carries the mutable state threaded through one Install call's
// script walk: the forward-only source reader, the archive writer, and the
// epfanim accumulator that spans every DAT processed.
type installRun struct {
	r                *sourceio.Reader
	writer           *archive.Writer
	dataRegionOrigin int64
	epfAcc           *epfanim.Accumulator
	log              zerolog.Logger
	sink             progress.Sink
	progress         *progress.Extraction
}

func (run *installRun) processOps(ops []wisescript.Op) error {
	for _, op := range ops {
		rec, ok := op.(wisescript.CreateFile)
		if !ok {
			continue
		}
		if !extract.Extractable(rec.Path) {
			target := run.dataRegionOrigin + int64(rec.DeflateEnd)
			if target > run.r.Offset() {
				if err := run.r.SkipForward(target - run.r.Offset()); err != nil {
					return err
				}
			}
			continue
		}

		body, err := extract.Open(run.r, rec, run.dataRegionOrigin)
		if err != nil {
			return err
		}

		if strings.HasSuffix(strings.ToLower(rec.Path), ".mus") {
			data, err := io.ReadAll(body)
			if err != nil {
				return &legacyerr.TruncatedFile{Path: rec.Path}
			}
			if err := body.Close(); err != nil {
				return err
			}
			if err := run.writer.AddEntry(rec.Path, data); err != nil {
				return err
			}
		} else {
			if err := run.processDat(rec.Path, body); err != nil {
				return err
			}
		}

		run.progress.Processed += uint64(rec.DeflateEnd - rec.DeflateStart - 4)
		run.sink.Report(run.progress.Percent(), run.progress.Message(rec.Path))
	}
	return nil
}

func (run *installRun) processDat(recPath string, body *extract.Body) error {
	datBasename := datBaseName(recPath)

	var paletteBuf []palette.Leaf
	var artifacts []decode.Artifact
	unpackErr := dat.Unpack(datBasename, body, func(leaf dat.Leaf) error {
		leafArtifacts, err := dispatchLeaf(datBasename, leaf, run.epfAcc, &paletteBuf, run.log)
		if err != nil {
			return err
		}
		artifacts = append(artifacts, leafArtifacts...)
		return nil
	})
	if unpackErr != nil {
		return unpackErr
	}
	if err := body.Close(); err != nil {
		return err
	}

	paletteArtifacts, err := palette.Decode(datBasename, paletteBuf)
	if err != nil {
		return err
	}
	artifacts = append(artifacts, paletteArtifacts...)

	for _, a := range artifacts {
		if err := run.writer.AddEntry(a.LogicalPath, a.Bytes); err != nil {
			return err
		}
	}
	return nil
}

// datBaseName strips the directory and .dat extension from a normalized
// script path, preserving case: dispatch and the palette.Pairs table key on
// the DAT's original-case basename.
func datBaseName(p string) string {
	base := path.Base(p)
	if idx := strings.LastIndex(strings.ToLower(base), ".dat"); idx >= 0 {
		base = base[:idx]
	}
	return base
}

// dispatchLeaf routes one unpacked DAT leaf to its format decoder by
// extension/name. .tbl/.pal leaves are deferred into paletteBuf rather than
// decoded immediately, since the palette bundle pass needs every deferred
// leaf of the DAT at once.
func dispatchLeaf(datBasename string, leaf dat.Leaf, epfAcc *epfanim.Accumulator, paletteBuf *[]palette.Leaf, log zerolog.Logger) ([]decode.Artifact, error) {
	name := leaf.Name
	lower := strings.ToLower(name)

	switch {
	case datBasename == "Legend" && lower == "color0.tbl":
		return colortable.Decode(datBasename, name, leaf.Data)

	case lower == "tilea.bmp" || lower == "tileas.bmp":
		return tilesheet.Decode(datBasename, name, leaf.Data)

	case decode.HasExt(name, ".hpf"):
		return hpf.Decode(datBasename, name, leaf.Data)

	case decode.HasExt(name, ".mpf"):
		return mpf.Decode(datBasename, name, leaf.Data)

	case decode.HasExt(name, ".efa"):
		artifacts, err := efa.Decode(datBasename, name, leaf.Data)
		return skipNonFatal(artifacts, err, name, log)

	case decode.HasExt(name, ".epf"):
		if epf.ShouldQueueForAnim(datBasename, name) {
			img, err := epf.Parse(leaf.Data)
			if err != nil {
				log.Warn().Err(err).Str("leaf", name).Msg("epf: skipping leaf queued for animation after parse error")
				return nil, nil
			}
			epfAcc.Add(name, img)
			return nil, nil
		}
		artifacts, err := epf.Decode(datBasename, name, leaf.Data)
		return skipNonFatal(artifacts, err, name, log)

	case decode.HasExt(name, ".spf"):
		artifacts, err := spf.Decode(datBasename, name, leaf.Data)
		return skipNonFatal(artifacts, err, name, log)

	case decode.HasExt(name, ".tbl") || decode.HasExt(name, ".pal"):
		*paletteBuf = append(*paletteBuf, palette.Leaf{Name: name, Data: leaf.Data})
		return nil, nil

	default:
		return []decode.Artifact{{LogicalPath: decode.LeafPath(datBasename, name), Bytes: leaf.Data}}, nil
	}
}

// skipNonFatal turns a non-fatal *legacyerr.DecoderError into a logged skip;
// this is the treatment EFA, SPF, and EPF decode failures get. Any other error
// still aborts the install.
func skipNonFatal(artifacts []decode.Artifact, err error, leaf string, log zerolog.Logger) ([]decode.Artifact, error) {
	if err == nil {
		return artifacts, nil
	}
	if de, ok := err.(*legacyerr.DecoderError); ok && !de.Fatal {
		log.Warn().Err(err).Str("leaf", leaf).Msg("decoder: skipping leaf after non-fatal error")
		return nil, nil
	}
	return nil, err
}
