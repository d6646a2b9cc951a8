package build

import "github.com/mrz1836/mqomctl/internal/matrix"

// Artifact is a toolchain target producing one executable per variant.
type Artifact string

// Toolchain targets.
const (
	ArtifactBench          Artifact = "bench"
	ArtifactBenchMemKeygen Artifact = "bench_mem_keygen"
	ArtifactBenchMemSign   Artifact = "bench_mem_sign"
	ArtifactBenchMemOpen   Artifact = "bench_mem_open"
	ArtifactKATGen         Artifact = "kat_gen"
	ArtifactKATCheck       Artifact = "kat_check"
)

// BenchArtifacts returns the benchmark and memory-probe targets.
func BenchArtifacts() []Artifact {
	return []Artifact{ArtifactBench, ArtifactBenchMemKeygen, ArtifactBenchMemSign, ArtifactBenchMemOpen}
}

// KATArtifacts returns the KAT generator and checker targets.
func KATArtifacts() []Artifact {
	return []Artifact{ArtifactKATGen, ArtifactKATCheck}
}

// AllArtifacts returns every target in build order.
func AllArtifacts() []Artifact {
	return append(BenchArtifacts(), KATArtifacts()...)
}

// SelectArtifacts returns the targets left after the --no-bench/--no-kat switches.
func SelectArtifacts(noBench, noKAT bool) []Artifact {
	out := []Artifact{}
	if !noBench {
		out = append(out, BenchArtifacts()...)
	}
	if !noKAT {
		out = append(out, KATArtifacts()...)
	}
	return out
}

// Executable returns the file name the toolchain produces for v and artifact.
func Executable(v matrix.Variant, artifact Artifact) string {
	return v.Label() + "_" + string(artifact)
}
