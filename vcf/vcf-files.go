// elPrep: a high-performance tool for preparing SAM/BAM files.
// Copyright (c) 2017, 2018 imec vzw.

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

package vcf

import (
	"bufio"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"unicode/utf8"

	"github.com/exascience/vg-genotyper/utils"
)

// FormatString outputs a string to a VCF file, adding necessary double quotes and escapes
func FormatString(out io.ByteWriter, str string) error {
	_ = out.WriteByte('"')
	for i := 0; i < len(str); i++ {
		b := str[i]
		if b == '"' || b == '\\' {
			_ = out.WriteByte('\\')
		}
		_ = out.WriteByte(b)
	}
	return out.WriteByte('"')
}

func needsQuotes(s string) bool {
	for i := 0; i < len(s); i++ {
		if ch := s[i]; ch == '"' || ch == ' ' {
			return true
		}
	}
	return false
}

// FormatMetaInformation outputs VCF meta information, which can be just a string or *MetaInformation
func FormatMetaInformation(out *bufio.Writer, meta interface{}) error {
	switch m := meta.(type) {
	case string:
		_, _ = out.WriteString(m)
		return out.WriteByte('\n')
	case *MetaInformation:
		_, _ = out.WriteString("<ID=")
		_, _ = out.WriteString(*m.ID)
		for key, value := range m.Fields {
			_ = out.WriteByte(',')
			_, _ = out.WriteString(key)
			_ = out.WriteByte('=')
			if needsQuotes(value) {
				_ = FormatString(out, value)
			} else {
				_, _ = out.WriteString(value)
			}
		}
		if m.Description != "" {
			_, _ = out.WriteString(",Description=")
			_ = FormatString(out, m.Description)
		}
		_, err := out.WriteString(">\n")
		return err
	default:
		return errors.New("invalid MetaInformation type")
	}
}

// FormatFormatInformation outputs VCF info or format information
func FormatFormatInformation(out *bufio.Writer, format *FormatInformation, infoNotFormat bool) error {
	_, _ = out.WriteString("<ID=")
	_, _ = out.WriteString(*format.ID)
	_, _ = out.WriteString(",Number=")
	if format.Number >= 0 {
		_, _ = out.WriteString(strconv.FormatInt(int64(format.Number), 10))
	} else {
		switch format.Number {
		case NumberA:
			_ = out.WriteByte('A')
		case NumberR:
			_ = out.WriteByte('R')
		case NumberG:
			_ = out.WriteByte('G')
		case NumberDot:
			_ = out.WriteByte('.')
		default:
			return errors.New("unknown Number kind in a VCF meta-information line")
		}
	}
	_, _ = out.WriteString(",Type=")
	switch format.Type {
	case Integer:
		_, _ = out.WriteString("Integer")
	case Float:
		_, _ = out.WriteString("Float")
	case Flag:
		_, _ = out.WriteString("Flag")
	case Character:
		_, _ = out.WriteString("Character")
	case String:
		_, _ = out.WriteString("String")
	default:
		return errors.New("invalid Type in a VCF meta-information line")
	}
	for key, value := range format.Fields {
		_ = out.WriteByte(',')
		_, _ = out.WriteString(key)
		_ = out.WriteByte('=')
		if (infoNotFormat && (key == "Source" || key == "Version")) || needsQuotes(value) {
			_ = FormatString(out, value)
		} else {
			_, _ = out.WriteString(value)
		}
	}
	if format.Description != "" {
		_, _ = out.WriteString(",Description=")
		_ = FormatString(out, format.Description)
	}
	_, err := out.WriteString(">\n")
	return err
}

// Format outputs a VCF header
func (header *Header) Format(out *bufio.Writer) (err error) {
	_, _ = out.WriteString(header.FileFormat)
	_ = out.WriteByte('\n')
	for _, info := range header.Infos {
		_, _ = out.WriteString("##INFO=")
		_ = FormatFormatInformation(out, info, true)
	}
	for _, format := range header.Formats {
		_, _ = out.WriteString("##FORMAT=")
		_ = FormatFormatInformation(out, format, false)
	}
	for key, metas := range header.Meta {
		for _, meta := range metas {
			_, _ = out.WriteString("##")
			_, _ = out.WriteString(key)
			_ = out.WriteByte('=')
			_ = FormatMetaInformation(out, meta)
		}
	}
	_ = out.WriteByte('#')
	if len(header.Columns) > 0 {
		_, _ = out.WriteString(header.Columns[0])
		for _, col := range header.Columns[1:] {
			_ = out.WriteByte('\t')
			_, _ = out.WriteString(col)
		}
	}
	return out.WriteByte('\n')
}

func formatStringList(out []byte, list []string, separator byte) []byte {
	if len(list) == 0 {
		return append(out, '.', '\t')
	}
	out = append(out, list[0]...)
	for _, entry := range list[1:] {
		out = append(out, separator)
		out = append(out, entry...)
	}
	return append(out, '\t')
}

func formatSymbolList(out []byte, list []utils.Symbol, separator byte) []byte {
	if len(list) == 0 {
		return append(out, '.')
	}
	out = append(out, (*list[0])...)
	for _, sym := range list[1:] {
		out = append(out, separator)
		out = append(out, (*sym)...)
	}
	return out
}

func formatValue(out []byte, value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case int:
		return strconv.AppendInt(out, int64(v), 10), nil
	case float64:
		return strconv.AppendFloat(out, v, 'f', -1, 64), nil
	case rune:
		if v < utf8.RuneSelf {
			return append(out, byte(v)), nil
		}
		pos := len(out)
		out = append(out, '1', '2', '3', '4', '5', '6')
		buf := out[pos:]
		return out[:pos+utf8.EncodeRune(buf, v)], nil
	case string:
		return append(out, v...), nil
	default:
		return nil, errors.New("invalid value type")
	}
}

func formatInfoEntry(out []byte, entry utils.SmallMapEntry) ([]byte, error) {
	out = append(out, (*entry.Key)...)
	switch e := entry.Value.(type) {
	case bool:
		if !e {
			return nil, errors.New("unexpected boolean value")
		}
		return out, nil
	case []interface{}:
		out = append(out, '=')
		if len(e) == 0 {
			return out, nil
		}
		var err error
		out, err = formatValue(out, e[0])
		if err != nil {
			return nil, err
		}
		for _, v := range e[1:] {
			out = append(out, ',')
			out, err = formatValue(out, v)
			if err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		out = append(out, '=')
		return formatValue(out, entry.Value)
	}
}

func formatInfo(out []byte, info utils.SmallMap) ([]byte, error) {
	if len(info) == 0 {
		return out, nil
	}
	var err error
	out, err = formatInfoEntry(out, info[0])
	if err != nil {
		return nil, err
	}
	for _, entry := range info[1:] {
		out = append(out, ';')
		out, err = formatInfoEntry(out, entry)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func formatGenotypeDataEntry(out []byte, format utils.Symbol, data utils.SmallMap) ([]byte, bool, error) {
	switch value, _ := data.Get(format); val := value.(type) {
	case nil:
		return append(out, '.'), false, nil
	case []interface{}:
		if len(val) == 0 {
			return out, true, nil
		}
		var err error
		if val[0] == nil {
			out = append(out, '.')
		} else {
			out, err = formatValue(out, val[0])
			if err != nil {
				return nil, false, err
			}
		}
		for _, v := range val[1:] {
			out = append(out, ',')
			if v == nil {
				out = append(out, '.')
			} else {
				out, err = formatValue(out, v)
				if err != nil {
					return nil, false, err
				}
			}
		}
		return out, true, nil
	default:
		var err error
		out, err = formatValue(out, value)
		if err != nil {
			return nil, false, err
		}
		return out, true, nil
	}
}

func formatGenotypeData(out []byte, format []utils.Symbol, data utils.SmallMap) ([]byte, error) {
	if len(format) == 0 {
		return out, nil
	}
	pos := len(out)
	out, ok, err := formatGenotypeDataEntry(out, format[0], data)
	if err != nil {
		return nil, err
	}
	if ok {
		pos = len(out)
	}
	for _, f := range format[1:] {
		out = append(out, ':')
		out, ok, err = formatGenotypeDataEntry(out, f, data)
		if err != nil {
			return nil, err
		}
		if ok {
			pos = len(out)
		}
	}
	if format[len(format)-1] == GT {
		return out, nil
	}
	return out[:pos], nil
}

// Format outputs a VCF variant line
func (variant *Variant) Format(out []byte) ([]byte, error) {
	out = append(append(out, variant.Chrom...), '\t')
	if variant.Pos < 0 {
		out = append(out, '.', '\t')
	} else {
		out = append(strconv.AppendInt(out, int64(variant.Pos), 10), '\t')
	}
	out = formatStringList(out, variant.ID, ';')
	out = append(append(out, variant.Ref...), '\t')
	out = formatStringList(out, variant.Alt, ',')
	if value, ok := variant.Qual.(float64); ok {
		out = append(strconv.AppendFloat(out, value, 'f', -1, 64), '\t')
	} else {
		out = append(out, '.', '\t')
	}
	if len(variant.Filter) == 0 {
		out = append(out, '.', '\t')
	} else {
		out = append(formatSymbolList(out, variant.Filter, ';'), '\t')
	}
	var err error
	out, err = formatInfo(out, variant.Info)
	if err != nil {
		return nil, err
	}
	if len(variant.GenotypeFormat) > 0 {
		out = append(out, '\t')
		out = formatSymbolList(out, variant.GenotypeFormat, ':')
		for _, data := range variant.GenotypeData {
			out = append(out, '\t')
			out, err = formatGenotypeData(out, variant.GenotypeFormat, data.Data)
			if err != nil {
				return nil, err
			}
		}
	}
	return append(out, '\n'), nil
}

// Format outputs a full VCF struct
func (vcf *Vcf) Format(out *bufio.Writer) error {
	if err := vcf.Header.Format(out); err != nil {
		return err
	}
	var buf []byte
	var err error
	for _, variant := range vcf.Variants {
		if buf, err = variant.Format(buf); err != nil {
			return err
		}
		if _, err = out.Write(buf); err != nil {
			return err
		}
		buf = buf[:0]
	}
	return nil
}

// The possible file extensions for VCF or BCF files, or gz-compressed VCF files
const (
	VcfExt = ".vcf"
	BcfExt = ".bcf"
	GzExt  = ".gz"
)

// OutputFile represents a VCF or BCF file for output.
type OutputFile struct {
	wc io.WriteCloser
	*bufio.Writer
	*exec.Cmd
}

// Writer is a bufio.Writer for a VCF or BCF OutputFile.
type Writer bufio.Writer

// VcfWriter returns the Writer for a VCF or BCF OutputFile.
func (output *OutputFile) VcfWriter() *Writer {
	return (*Writer)(output.Writer)
}

// Create a VCF file for output.
//
// If the filename extension is .bcf or .gz, use bcftools view for
// output.
//
// bcftools must be visible in the directories named by the PATH
// environment variable for .bcf or .gz output.
//
// If the filename extension is not .bcf or .gz, then .vcf is always
// assumed.
//
// If the name is "/dev/stdout", then the output is written to
// os.Stdout.
func Create(name string, compressed bool) (*OutputFile, error) {
	ext := filepath.Ext(name)
	if ext == BcfExt || ext == GzExt || compressed {
		args := []string{"view"}
		switch ext {
		case BcfExt:
			if compressed {
				args = append(args, "-Ob")
			} else {
				args = append(args, "-Ou")
			}
		case GzExt:
			args = append(args, "-Oz")
		default:
			if compressed {
				args = append(args, "-Oz")
			} else {
				args = append(args, "-Ov")
			}
		}
		args = append(args, []string{"--threads", strconv.FormatInt(int64(runtime.GOMAXPROCS(0)), 10)}...)
		args = append(args, []string{"-o", name, "-"}...)
		cmd := exec.Command("bcftools", args...)
		inPipe, err := cmd.StdinPipe()
		if err != nil {
			return nil, err
		}
		err = cmd.Start()
		if err != nil {
			return nil, err
		}
		return &OutputFile{inPipe, bufio.NewWriter(inPipe), cmd}, nil
	}
	if name == "/dev/stdout" {
		return &OutputFile{os.Stdout, bufio.NewWriter(os.Stdout), nil}, nil
	}
	file, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	return &OutputFile{file, bufio.NewWriter(file), nil}, nil
}

// Close the VCF output file, flushing buffered output first. If
// bcftools view is used for output, wait for its process to finish.
func (output *OutputFile) Close() error {
	err := output.Flush()
	if err != nil {
		return err
	}
	if output.wc != os.Stdout {
		err := output.wc.Close()
		if err != nil {
			return err
		}
	}
	if output.Cmd != nil {
		err := output.Wait()
		if err != nil {
			return err
		}
	}
	return nil
}
