// vg-genotyper: a variation-graph genotyper.
// Derived from elPrep (https://github.com/ExaScience/elprep), (c) imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package cmd

import (
	"flag"
	"io"
	"log"
	"os"

	"github.com/exascience/vg-genotyper/genotyper"
	"github.com/exascience/vg-genotyper/internal"
	"github.com/exascience/vg-genotyper/vcf"
)

// GenotypeHelp is the help string for this command.
const GenotypeHelp = "\ngenotype parameters:\n" +
	"vg-genotyper genotype graph-file alignments-file\n" +
	"[--unfold-max-length nr]\n" +
	"[--dagify-steps nr]\n" +
	"[--max-path-search-steps nr]\n" +
	"[--min-recurrence nr]\n" +
	"[--het-prior p]\n" +
	"[--default-base-quality nr]\n" +
	"[--use-mapq]\n" +
	"[--use-cactus]\n" +
	"[--reference-path-name name]\n" +
	"[--sample-name name]\n" +
	"[--contig-name name]\n" +
	"[--variant-offset nr]\n" +
	"[--regions-bed bed-file]\n" +
	"[--slow-affinity]\n" +
	"[--sorted-output]\n" +
	"[--nr-of-threads nr]\n" +
	"[--output-format [variant | json | binary]]\n" +
	"[--output file]\n" +
	"[-v]\n" +
	"[--timed]\n" +
	"[--log-path path]\n"

// Genotype implements the vg-genotyper genotype command.
func Genotype() error {
	var (
		unfoldMaxLength    int
		dagifySteps        int
		maxPathSearchSteps int
		minRecurrence      int
		hetPrior           float64
		defaultBaseQuality int
		useMapQ            bool
		useCactus          bool
		referencePathName  string
		sampleName         string
		contigName         string
		variantOffset      int
		regionsBED         string
		slowAffinity       bool
		sortedOutput       bool
		nrOfThreads        int
		outputFormat       string
		outputPath         string
		verbose            bool
		timed              bool
		profile            string
		logPath            string
	)

	var flags flag.FlagSet

	flags.IntVar(&unfoldMaxLength, "unfold-max-length", 200, "maximum number of duplicates of one node created while unfolding")
	flags.IntVar(&dagifySteps, "dagify-steps", 1, "maximum number of times a cyclic node is duplicated when dagifying")
	flags.IntVar(&maxPathSearchSteps, "max-path-search-steps", 100, "maximum mappings walked per embedded path while tracing a site")
	flags.IntVar(&minRecurrence, "min-recurrence", 2, "minimum distinct reads required to retain a non-reference allele")
	flags.Float64Var(&hetPrior, "het-prior", 0.001, "prior probability of heterozygosity")
	flags.IntVar(&defaultBaseQuality, "default-base-quality", 30, "Phred base quality assumed when a read carries none")
	flags.BoolVar(&useMapQ, "use-mapq", true, "fold each read's mapping quality into its error-probability term")
	flags.BoolVar(&useCactus, "use-cactus", false, "use the cactus-graph bubble finder (Strategy B) instead of the superbubble finder (Strategy A)")
	flags.StringVar(&referencePathName, "reference-path-name", "", "name of the embedded reference path (auto-selected if the graph has exactly one path)")
	flags.StringVar(&sampleName, "sample-name", "SAMPLE", "sample column name for variant-record output")
	flags.StringVar(&contigName, "contig-name", "", "contig name for output records (defaults to the reference path name)")
	flags.IntVar(&variantOffset, "variant-offset", 0, "offset added to every output position")
	flags.StringVar(&regionsBED, "regions-bed", "", "BED file scoping site discovery to the listed regions")
	flags.BoolVar(&slowAffinity, "slow-affinity", false, "use the realignment-based affinity scorer instead of the fast sequence-identity scorer")
	flags.BoolVar(&sortedOutput, "sorted-output", false, "collect all loci and sort by reference position before emitting")
	flags.IntVar(&nrOfThreads, "nr-of-threads", 0, "number of worker threads (0 = runtime.GOMAXPROCS(0))")
	flags.StringVar(&outputFormat, "output-format", "variant", "one of variant, json, or binary")
	flags.StringVar(&outputPath, "output", "", "output file (default: standard output)")
	flags.BoolVar(&verbose, "v", false, "log per-site diagnostics")
	flags.BoolVar(&timed, "timed", false, "measure the runtime")
	flags.StringVar(&profile, "profile", "", "write a runtime profile to the specified file(s)")
	flags.StringVar(&logPath, "log-path", "", "write log files to the specified directory")

	parseFlags(flags, 4, GenotypeHelp)

	graphFile := getFilename(os.Args[2], GenotypeHelp)
	alignmentsFile := getFilename(os.Args[3], GenotypeHelp)

	setLogOutput(logPath)

	var sanityChecksFailed bool
	if !checkExist("", graphFile) {
		sanityChecksFailed = true
	}
	if !checkExist("", alignmentsFile) {
		sanityChecksFailed = true
	}
	if regionsBED != "" && !checkExist("--regions-bed", regionsBED) {
		sanityChecksFailed = true
	}
	if outputPath != "" && !checkCreate("--output", outputPath) {
		sanityChecksFailed = true
	}
	if profile != "" && !checkCreate("--profile", profile) {
		sanityChecksFailed = true
	}
	if nrOfThreads < 0 {
		sanityChecksFailed = true
		log.Println("Error: Invalid nr-of-threads: ", nrOfThreads)
	}

	var format genotyper.OutputFormat
	switch outputFormat {
	case "variant":
		format = genotyper.VariantOutput
	case "json":
		format = genotyper.JSONOutput
	case "binary":
		format = genotyper.BinaryOutput
	default:
		sanityChecksFailed = true
		log.Println("Error: Invalid --output-format: ", outputFormat)
	}

	if sanityChecksFailed {
		logCheckFile("", "Error: aborting because of the errors above")
		os.Exit(1)
	}

	// Variant-record output goes through vcf.Create, which recognizes a
	// .bcf or .gz extension and pipes through bcftools view to compress
	// on the fly; JSON and binary output are this module's own formats
	// and always go straight to a plain file.
	var out io.Writer
	if format == genotyper.VariantOutput {
		name := outputPath
		if name == "" {
			name = "/dev/stdout"
		}
		vcfOut, err := vcf.Create(name, false)
		if err != nil {
			log.Panic(err)
		}
		defer func() {
			if err := vcfOut.Close(); err != nil {
				log.Panic(err)
			}
		}()
		out = vcfOut.Writer
	} else if outputPath == "" {
		out = os.Stdout
	} else {
		f := internal.FileCreate(outputPath)
		defer internal.Close(f)
		out = f
	}

	cfg := genotyper.RunConfig{
		GraphPath:          graphFile,
		AlignmentsPath:     alignmentsFile,
		UnfoldMaxLength:    unfoldMaxLength,
		DagifySteps:        dagifySteps,
		MaxPathSearchSteps: maxPathSearchSteps,
		MinRecurrence:      minRecurrence,
		HetPrior:           hetPrior,
		DefaultBaseQuality: defaultBaseQuality,
		UseMapQ:            useMapQ,
		UseCactus:          useCactus,
		ReferencePathName:  referencePathName,
		SampleName:         sampleName,
		ContigName:         contigName,
		VariantOffset:      int32(variantOffset),
		RegionsBED:         regionsBED,
		SlowAffinity:       slowAffinity,
		SortedOutput:       sortedOutput,
		WorkerCount:        nrOfThreads,
		Verbose:            verbose,
		Format:             format,
		Output:             out,
	}

	return timedRun(timed, profile, "Genotyping.", 1, func() error {
		return genotyper.Run(cfg)
	})
}
