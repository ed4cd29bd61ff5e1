package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/marketlens/backend-go/internal/domain"
	"github.com/andresuchdata/marketlens/backend-go/internal/portal"
	"github.com/andresuchdata/marketlens/backend-go/internal/reason"
)

func newTestParser() *Parser {
	return NewParser(reason.NewClassifier(reason.DefaultTable()))
}

func parseCSV(t *testing.T, kind Kind, csv string, opts Options) *Batch {
	t.Helper()
	tbl, err := Read(strings.NewReader(csv), "upload.csv")
	require.NoError(t, err)
	b, err := newTestParser().Parse(kind, tbl, opts)
	require.NoError(t, err)
	return b
}

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseSales(t *testing.T) {
	csv := "order line id,Style ID,Created On,Seller SKU Code,Seller Price,Brand\n" +
		"9001.0, 1234.0 ,05-01-2025,TEE-RED-M,499.00,Acme\n" +
		"9002,1234,garbage,TEE-RED-L,,Acme\n" +
		"9003,1235,2025-02-10 10:00:00,TEE-BLU-S,\"1,299\",\n"
	b := parseCSV(t, KindSales, csv, Options{SourceFile: "sales.csv"})

	assert.Equal(t, 3, b.RowsInFile)
	assert.Equal(t, 1, b.Skipped)
	require.Len(t, b.Sales, 2)

	s := b.Sales[0]
	assert.Equal(t, portal.Myntra, s.Portal)
	assert.Equal(t, "9001", s.OrderLineID)
	assert.Equal(t, "1234", s.StyleKey)
	assert.Equal(t, "tee-red-m", s.SellerSKUCode)
	assert.Equal(t, day("2025-01-05"), s.OrderDate)
	assert.Equal(t, 1, s.Units)
	assert.Equal(t, "Acme", s.Attributes.Brand())
	assert.Equal(t, "sales.csv", s.Attributes.Get(domain.AttrSourceFile))
	price, ok := s.Attributes.SellerPrice()
	assert.True(t, ok)
	assert.Equal(t, "499", price.String())

	assert.Equal(t, "Created On", b.Detected["created_on"])
	assert.Equal(t, []time.Time{day("2025-01-01"), day("2025-02-01")}, b.Months())
}

func TestParseSalesMissingColumns(t *testing.T) {
	tbl, err := Read(strings.NewReader("Style ID,Created On\n1,2025-01-01\n"), "x.csv")
	require.NoError(t, err)

	_, err = newTestParser().Parse(KindSales, tbl, Options{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "order line id")
}

func TestParseReturns(t *testing.T) {
	csv := "order_line_id,style_id,type,quantity,return_created_date,order_rto_date,seller_sku_code,return_reason\n" +
		"9003,1235,Return,1,2025-02-20,,TEE-BLU-S,Size is too large\n" +
		"9004,1235,RTO,,,2025-02-22,TEE-BLU-M,\n" +
		"9005,1236,Exchange,2,2025-02-23,,,weird custom text\n" +
		"9006,1236,Return,1,,2025-02-24,,\n"
	b := parseCSV(t, KindReturns, csv, Options{})

	assert.Equal(t, 1, b.Skipped, "customer return without a return date")
	require.Len(t, b.Returns, 3)

	ret, rto, other := b.Returns[0], b.Returns[1], b.Returns[2]
	assert.Equal(t, "RETURN", ret.ReturnType)
	assert.Equal(t, reason.SizeTooBig, ret.Attributes.CleanReason())
	assert.Equal(t, "Size is too large", ret.Attributes.ReturnReason())

	assert.Equal(t, "RTO", rto.ReturnType)
	assert.Equal(t, day("2025-02-22"), rto.ReturnDate, "RTO rows use the RTO date")
	assert.Equal(t, 1, rto.Units, "missing quantity means one unit")
	assert.Equal(t, reason.RTONoReason, rto.Attributes.CleanReason())

	assert.Equal(t, "EXCHANGE", other.ReturnType)
	assert.Equal(t, 2, other.Units)
	assert.Equal(t, reason.Other, other.Attributes.CleanReason())
}

func TestParseCatalogDedupes(t *testing.T) {
	csv := "Style ID,Style Catalogued Date,Brand,Style Name,Seller SKU Code\n" +
		"1234,01-12-2024,Acme,Tee,TEE-RED-M\n" +
		"1234,01-12-2024,Acme,Tee v2,TEE-RED-M\n" +
		"1234,bad,Acme,Tee,TEE-RED-L\n" +
		",01-12-2024,Acme,Tee,TEE-RED-XL\n"
	b := parseCSV(t, KindCatalog, csv, Options{})

	assert.Equal(t, 1, b.Skipped)
	require.Len(t, b.Catalog, 2)
	assert.Equal(t, "Tee v2", b.Catalog[0].ProductName, "last duplicate wins")
	require.NotNil(t, b.Catalog[0].StyleCataloguedDate)
	assert.Equal(t, day("2024-12-01"), *b.Catalog[0].StyleCataloguedDate)
	assert.Nil(t, b.Catalog[1].StyleCataloguedDate)
}

func TestParseStock(t *testing.T) {
	b := parseCSV(t, KindStock, "seller_sku_code,qty\nTEE-RED-M,5\nTEE-RED-L,x\n,3\n", Options{})
	assert.Equal(t, 1, b.Skipped)
	require.Len(t, b.Stock, 2)
	assert.Equal(t, domain.StockRow{Portal: portal.Myntra, SellerSKUCode: "tee-red-m", Qty: 5}, b.Stock[0])
	assert.Equal(t, 0, b.Stock[1].Qty)
}

func TestParseWeeklyPerf(t *testing.T) {
	csv := "Style ID,Impressions,Clicks,Add To Carts,Purchases,Return %,Inventory Age,Rating\n" +
		"1234.0,1,200,3,0,12.5%,40,\n"
	b := parseCSV(t, KindWeeklyPerf, csv, Options{})
	require.Len(t, b.WeeklyPerf, 1)
	w := b.WeeklyPerf[0]
	assert.Equal(t, "1234", w.StyleKey)
	assert.Equal(t, int64(1), w.Impressions)
	require.NotNil(t, w.ReturnPct)
	assert.Equal(t, 12.5, *w.ReturnPct)
	require.NotNil(t, w.InventoryAge)
	assert.Equal(t, int64(40), *w.InventoryAge)
	assert.Nil(t, w.Rating)
}

const flipkartEventsHeader = "Order Item ID,FSN,SKU,Buyer Invoice Date,Event Type,Event Sub Type,Item Quantity," +
	"\"Final Invoice Amount (Price after discount+Shipping Charges)\"\n"

func TestParseFlipkartEvents(t *testing.T) {
	csv := flipkartEventsHeader +
		"OI:111,TSHABC,Tee-Red-M,2025-02-10,Sale,Sale,2,1000\n" +
		"OI:111,TSHABC,Tee-Red-M,2025-02-20,Return,Return,1,500\n" +
		"OI:112,TSHABC,Tee-Red-L,2025-02-21,Return,Cancellation,0,0\n" +
		"OI:113,TSHABC,Tee-Red-L,2025-02-22,Return,Return Cancellation,1,500\n" +
		"OI:114,TSHABC,Tee-Red-L,2025-02-23,Return,Courier Lost,1,500\n" +
		"OI:115,TSHABC,Tee-Red-L,2025-02-23,Adjustment,,1,10\n" +
		",TSHABC,Tee-Red-L,2025-02-23,Sale,Sale,1,10\n"
	b := parseCSV(t, KindFlipkartEvents, csv, Options{WorkspaceSlug: "Shop1"})

	assert.Equal(t, 3, b.Skipped)
	require.Len(t, b.Sales, 1)
	require.Len(t, b.Returns, 3)

	sale := b.Sales[0]
	assert.Equal(t, portal.Flipkart, sale.Portal)
	assert.Equal(t, "fk:shop1:111", sale.OrderLineID)
	assert.Equal(t, "fk:tshabc", sale.StyleKey)
	assert.Equal(t, "fk:tee-red-m", sale.SellerSKUCode)
	assert.Equal(t, 2, sale.Units)
	price, ok := sale.Attributes.SellerPrice()
	require.True(t, ok)
	assert.Equal(t, "500", price.String())

	assert.Equal(t, "CUSTOMER_RETURN", b.Returns[0].ReturnType)
	assert.Equal(t, sale.OrderLineID, b.Returns[0].OrderLineID, "returns join sales by order line")
	assert.Equal(t, "RTO", b.Returns[1].ReturnType)
	assert.Equal(t, 1, b.Returns[1].Units, "zero quantity counts as one unit")
	assert.Equal(t, "COURIER LOST", b.Returns[2].ReturnType)
	assert.Equal(t, reason.Unknown, b.Returns[2].Attributes.CleanReason())
}

func TestParseFlipkartListing(t *testing.T) {
	csv := "Flipkart Serial Number,Seller SKU Id,Product Title,Your Stock Count\n" +
		"TSHABC,Tee-Red-M,Red Tee,4\n" +
		"TSHABC,Tee-Red-M,Red Tee,3\n" +
		"TSHABC,Tee-Red-L,Red Tee,-2\n" +
		",Tee-Red-XL,Red Tee,9\n"
	b := parseCSV(t, KindFlipkartListing, csv, Options{})

	assert.Equal(t, 1, b.Skipped)
	require.Len(t, b.Catalog, 2)
	assert.Equal(t, "fk:tshabc", b.Catalog[0].StyleKey)
	assert.Equal(t, "Red Tee", b.Catalog[0].ProductName)
	assert.Equal(t, []domain.StockRow{
		{Portal: portal.Flipkart, SellerSKUCode: "fk:tee-red-m", Qty: 7},
		{Portal: portal.Flipkart, SellerSKUCode: "fk:tee-red-l", Qty: 0},
	}, b.Stock)
}

func TestParseFlipkartTraffic(t *testing.T) {
	csv := "Impression Date,SKU Id,Listing Id,Product Views,Product Clicks,Sales,Revenue,Click Through Rate\n" +
		"2025-03-01,MX-EM-001-Wine-L,LSTKTAH6WUWPZAH2NUQVLNNLG,120,21,1,\"1,299\",17.55\n" +
		"bad,MX-EM-001-Wine-L,,1,1,1,1,1\n"
	b := parseCSV(t, KindFlipkartTraffic, csv, Options{})

	assert.Equal(t, 1, b.Skipped)
	require.Len(t, b.Traffic, 1)
	tr := b.Traffic[0]
	assert.Equal(t, "fk:mx-em-001-wine-l", tr.SellerSKUCode)
	assert.Equal(t, "fk:ktah6wuwpzah2nuq", tr.ListingID)
	assert.Equal(t, 1299.0, tr.Revenue)
	require.NotNil(t, tr.CTRPct)
	assert.Equal(t, 17.55, *tr.CTRPct)
	assert.Nil(t, tr.ConversionPct)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("flipkart-events")
	require.NoError(t, err)
	assert.Equal(t, portal.Flipkart, k.Portal())
	assert.True(t, k.TouchesOrders())
	assert.False(t, KindCatalog.TouchesOrders())

	_, err = ParseKind("pnl")
	assert.True(t, domain.IsValidation(err))
}
