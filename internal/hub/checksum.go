package hub

import "github.com/sigurn/crc16"

// crcTable is the precomputed table for CRC-16/MCRF4XX: initial register
// 0xFFFF, polynomial 0x1021 in reflected form, no final XOR. This is the
// variant the board firmware computes, so both sides must agree bit-exactly.
var crcTable = crc16.MakeTable(crc16.CRC16_MCRF4XX)

// Checksum computes the 16-bit frame checksum over an ASCII message body.
//
// It is deterministic and order-sensitive. The published check value for
// "123456789" is 0x6F91.
func Checksum(body string) uint16 {
	return crc16.Checksum([]byte(body), crcTable)
}
