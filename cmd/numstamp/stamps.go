package main

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"numstamp/internal/arith"
	"numstamp/internal/constant"
	"numstamp/internal/stamp"
)

func newFoldCmd() *cobra.Command {
	var bits int
	cmd := &cobra.Command{
		Use:   "fold <op> <stamp>...",
		Short: "Apply an operator to stamps",
		Example: `  numstamp fold add "i32 [1 - 10]" "i32 [100 - 200]"
  numstamp fold zeroextend --bits 64 "i8 [-1]"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := arith.Lookup(args[0])
			if err != nil {
				return err
			}
			operands, err := parseStamps(args[1:])
			if err != nil {
				return err
			}
			r, err := arith.Fold(op, bits, operands...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "result width of integer conversions")
	return cmd
}

func newEvalCmd() *cobra.Command {
	var bits int
	cmd := &cobra.Command{
		Use:   "eval <op> <type> <value>...",
		Short: "Fold an operator over constants",
		Long: `eval folds an operator over constants of one type, written i1, i8, i16,
i32, i64, f32 or f64. Shift amounts are read at the same type.`,
		Example: `  numstamp eval add i8 127 1
  numstamp eval d2i f64 1e300`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, err := arith.Lookup(args[0])
			if err != nil {
				return err
			}
			kind, width, err := parseType(args[1])
			if err != nil {
				return err
			}
			values := make([]constant.Value, 0, len(args)-2)
			for _, text := range args[2:] {
				v, err := constant.Parse(kind, width, text)
				if err != nil {
					return err
				}
				values = append(values, v)
			}
			r, ok, err := arith.Eval(op, bits, values...)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s does not fold on %s", op, strings.Join(args[2:], ", "))
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			return nil
		},
	}
	cmd.Flags().IntVar(&bits, "bits", 0, "result width of integer conversions")
	return cmd
}

func newLatticeCmd(name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <stamp> <stamp>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := parseStamps(args)
			if err != nil {
				return err
			}
			if !s[0].IsCompatible(s[1]) {
				return fmt.Errorf("%s: %s and %s are not compatible", name, s[0], s[1])
			}
			r := s[0].Meet(s[1])
			if name == "join" {
				r = s[0].Join(s[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), r)
			return nil
		},
	}
}

func newContainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contains <stamp> <value>",
		Short: "Report whether a value is a member of a stamp",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stamp.Parse(args[0])
			if err != nil {
				return err
			}
			n, ok := s.(stamp.Numeric)
			if !ok {
				return fmt.Errorf("contains: %s is not a numeric stamp", s)
			}
			kind := constant.KindInt
			if s.Kind() == stamp.KindFloat {
				kind = constant.KindFloat
			}
			v, err := constant.Parse(kind, n.Bits(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strconv.FormatBool(member(s, v)))
			return nil
		},
	}
}

func newDecodeCmd() *cobra.Command {
	var bigEndian bool
	cmd := &cobra.Command{
		Use:   "decode <stamp> <hex>",
		Short: "Decode a constant of the stamp's width from hex bytes",
		Example: `  numstamp decode i32 2a000000
  numstamp decode --big-endian "f32! [0 - 10]" 3f800000`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := stamp.Parse(args[0])
			if err != nil {
				return err
			}
			buf, err := hex.DecodeString(strings.TrimPrefix(args[1], "0x"))
			if err != nil {
				return fmt.Errorf("decode: %w", err)
			}
			var order binary.ByteOrder = binary.LittleEndian
			if bigEndian {
				order = binary.BigEndian
			}
			v, err := s.Deserialize(buf, order)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if member(s, v) {
				fmt.Fprintln(out, v)
			} else {
				fmt.Fprintf(out, "%s (outside %s)\n", v, s)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&bigEndian, "big-endian", false, "read the bytes most significant first")
	return cmd
}

func parseStamps(texts []string) ([]stamp.Stamp, error) {
	out := make([]stamp.Stamp, len(texts))
	for i, t := range texts {
		s, err := stamp.Parse(t)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// parseType reads i<bits> or f<bits>.
func parseType(text string) (constant.Kind, int, error) {
	if len(text) < 2 {
		return constant.KindIllegal, 0, fmt.Errorf("type %q: want i<bits> or f<bits>", text)
	}
	width, err := strconv.Atoi(text[1:])
	if err != nil {
		return constant.KindIllegal, 0, fmt.Errorf("type %q: want i<bits> or f<bits>", text)
	}
	switch {
	case text[0] == 'i' && constant.ValidIntBits(width):
		return constant.KindInt, width, nil
	case text[0] == 'f' && constant.ValidFloatBits(width):
		return constant.KindFloat, width, nil
	}
	return constant.KindIllegal, 0, fmt.Errorf("type %q: unsupported width", text)
}

func member(s stamp.Stamp, v constant.Value) bool {
	switch st := s.(type) {
	case *stamp.IntegerStamp:
		return st.Contains(v.Int64())
	case *stamp.FloatStamp:
		return st.Contains(v.Float64())
	}
	return false
}
