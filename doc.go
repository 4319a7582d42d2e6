/*
LRPT decodes Meteor-M LRPT soft symbol captures into CCSDS source packets.

Input is a stream of signed 8-bit soft symbols, I and Q interleaved, as
written by a QPSK demodulator. Each 1024 byte frame is located by
correlating against the convolutionally encoded sync marker under all four
phase rotations and both IQ orders, Viterbi decoded, derandomized and
corrected by four interleaved Reed-Solomon (255,223) codewords. Corrected
VCDUs are demultiplexed into source packets which are parsed by APID.

Command-line Flags:

	-input="-"

Sets the capture to read, - for stdin. Zstandard and gzip compressed
captures are detected and decompressed.

	-config=""

Names a YAML file of flag defaults keyed by flag name. Flags given on the
command line or through LRPT_* environment variables take precedence.

	-format="plain"

Sets the message output format: plain, csv, json or xml. For json and xml
output each line is an element, there is no root node.

Plain text is formatted using the following format string:

	{Time:%s %s:%s}

	-msgtype="all"

Selects packet parsers: msumr for image segments on APIDs 64 through 69 and
telemetry for the onboard clock on APID 70. Packets on other APIDs are
reported as Raw.

	-filterapid=64,65

Displays only messages matching an APID in a comma-separated list.

	-dualbasis=true

Treats Reed-Solomon symbols as Berlekamp dual basis rather than the
conventional representation. The interleave depth is fixed at 4.

	-metrics=":9090"

Serves prometheus metrics on the given address.

	-duration=0 -single=false

Limit run time, or exit after the first message passing the filters.
*/
package main
