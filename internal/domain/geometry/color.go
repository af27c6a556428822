package geometry

import (
	"fmt"
	"math"
)

// ASSColor renders a 24-bit RGB value as the BBGGRR hex digits ASS color
// tags expect. Pure black and white pass through unchanged. Stages at SD
// resolution or above get a BT.601→BT.709 conversion because players assume
// the source matrix; smaller stages keep the legacy plain channel swap.
func ASSColor(rgb uint32, stageWidth, stageHeight int) string {
	switch rgb {
	case 0x000000:
		return "000000"
	case 0xFFFFFF:
		return "FFFFFF"
	}
	r := float64((rgb >> 16) & 0xFF)
	g := float64((rgb >> 8) & 0xFF)
	b := float64(rgb & 0xFF)
	if stageWidth < 1280 && stageHeight < 576 {
		return fmt.Sprintf("%02X%02X%02X", int(b), int(g), int(r))
	}
	return fmt.Sprintf("%02X%02X%02X",
		clipByte(r*0.00956384088080656+g*0.03217254540203729+b*0.95826361371715607),
		clipByte(r*-0.10493933142075390+g*1.17231478191855154+b*-0.06737545049779757),
		clipByte(r*0.91348912373987645+g*0.07858536372532510+b*0.00792551253479842),
	)
}

func clipByte(x float64) int {
	switch {
	case x > 255:
		return 255
	case x < 0:
		return 0
	default:
		return int(math.Round(x))
	}
}
