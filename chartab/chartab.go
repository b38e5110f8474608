/*
 * Character conversion tables for the CDC 6000-series peripheral core.
 *
 * Copyright (c) 2021-2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package chartab holds the fixed 64-entry lookup tables that translate
// between the mainframe's 6-bit display code, external BCD and console
// code, and host ASCII. Printers and the console share these tables;
// none of them are mutated after init.
package chartab

// BcdToAscii is the CDC display-code to ASCII table used by the
// 3000-series line printers and, for character-mode words, by the
// 6612 console.
var BcdToAscii = [64]byte{
	':', '=', '[', ']', '(', ')', '$', '*',
	'/', '+', '-', ' ', ',', '.', '#', '_',
	'!', '&', '?', '<', '>', '@', '\\', '^',
	'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H',
	'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P',
	'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X',
	'Y', 'Z', '0', '1', '2', '3', '4', '5',
	'6', '7', '8', '9', ';', '\'', '{', '}',
}

// ExtBcdToAscii is the external (7-track tape compatible) BCD table
// used by the 1612 printer. It follows the classic zone/digit BCDIC
// layout: zone 00 carries digits, zone 01 carries A-I, zone 10 carries
// J-R, zone 11 carries S-Z. Some unused code points collide on a
// filler character (space, punctuation); that is harmless, since the
// 1612 only ever decodes this table, it never re-encodes through it.
var ExtBcdToAscii = [64]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', ' ', ',', '.', ')', '(', '*',
	'&', 'A', 'B', 'C', 'D', 'E', 'F', 'G',
	'H', 'I', '-', '/', '$', '=', '#', '@',
	' ', 'J', 'K', 'L', 'M', 'N', 'O', 'P',
	'Q', 'R', '!', '?', ';', ':', '<', '>',
	'#', '%', 'S', 'T', 'U', 'V', 'W', 'X',
	'Y', 'Z', '[', ']', '{', '}', '^', '_',
}

// ConsoleToAscii is the 6612 console's character-mode table. Codes
// 074-077 octal (60-63) have no console character and are filled with
// '?' only so the table stays total, matching the shape of the other
// two. A high character of 060 or above is taken by the console as a
// coordinate word and never reaches this table (see
// device/console6612); the low character of a word is looked up for
// any code.
var ConsoleToAscii = [64]byte{
	':', '=', '[', ']', '(', ')', '$', '*',
	'/', '+', '-', ' ', ',', '.', '#', '_',
	'!', '&', '?', '<', '>', '@', '\\', '^',
	'A', 'B', 'C', 'D', 'E', 'F', 'G', 'H',
	'I', 'J', 'K', 'L', 'M', 'N', 'O', 'P',
	'Q', 'R', 'S', 'T', 'U', 'V', 'W', 'X',
	'Y', 'Z', '0', '1', '2', '3', '4', '5',
	'6', '7', '8', '9', '?', '?', '?', '?',
}

// AsciiToCdc and AsciiToConsole are the reverse mappings, built once at
// init from the forward tables rather than transcribed by hand, so
// they can never drift out of sync with BcdToAscii/ConsoleToAscii.
// There is deliberately no reverse table for ExtBcdToAscii: nothing in
// this core ever needs to re-encode ASCII into external BCD.
var (
	AsciiToCdc     [128]byte
	AsciiToConsole [128]byte
)

func init() {
	buildReverse(&AsciiToCdc, &BcdToAscii)
	buildReverse(&AsciiToConsole, &ConsoleToAscii)
}

func buildReverse(rev *[128]byte, fwd *[64]byte) {
	for code, ch := range fwd {
		rev[ch] = byte(code)
	}
}
