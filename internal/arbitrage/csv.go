package arbitrage

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"
)

// LedgerHeader returns the CSV column names. Channel columns are prefixed
// with the channel names, e.g. "epex_income".
func LedgerHeader(channelA, channelB string) []string {
	header := []string{"index", "store_power_mw", "store_energy_mwh", "action"}
	for _, ch := range []string{channelA, channelB} {
		header = append(header,
			ch+"_dispatch_mw",
			ch+"_price",
			ch+"_net_mw",
			ch+"_income",
		)
	}
	return append(header, "income", "cum_income")
}

func WriteLedgerCSV(path string, res *Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return WriteLedger(f, res)
}

// WriteLedger writes the ledger as CSV to w.
func WriteLedger(w io.Writer, res *Result) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(LedgerHeader(res.ChannelA, res.ChannelB)); err != nil {
		return err
	}

	for _, r := range res.Ledger {
		row := []string{
			strconv.Itoa(r.Index),
			fmtFloat(r.StorePowerMW),
			fmtFloat(r.StoreEnergyMWh),
			string(r.Action),
		}
		for _, ch := range []ChannelRow{r.A, r.B} {
			row = append(row,
				fmtFloat(ch.DispatchMW),
				fmtFloat(ch.Price),
				fmtFloat(ch.NetMW),
				fmtFloat(ch.Income),
			)
		}
		row = append(row, fmtFloat(r.Income), fmtFloat(r.CumIncome))
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(clean(x), 'f', 6, 64)
}
