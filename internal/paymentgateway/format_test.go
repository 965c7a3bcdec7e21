package paymentgateway

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("NormalizePhone", func() {
	DescribeTable("converts numbers to the bare MSISDN form",
		func(input, countryCode, expected string) {
			Expect(NormalizePhone(input, countryCode)).To(Equal(expected))
		},
		Entry("local number", "0712345678", "254", "254712345678"),
		Entry("international with plus", "+254712345678", "254", "254712345678"),
		Entry("already normalized", "254712345678", "254", "254712345678"),
		Entry("default country code", "0712345678", "", "254712345678"),
		Entry("other country code", "0712345678", "255", "255712345678"),
		Entry("empty input", "", "254", ""),
	)
})

var _ = Describe("RoundAmount", func() {
	DescribeTable("rounds half away from zero",
		func(input string, expected int64) {
			Expect(RoundAmount(decimal.RequireFromString(input)).IntPart()).To(Equal(expected))
		},
		Entry("fraction above half", "65000.6", int64(65001)),
		Entry("exact half", "0.5", int64(1)),
		Entry("fraction below half", "1200.49", int64(1200)),
		Entry("whole amount", "45000", int64(45000)),
	)
})

var _ = Describe("Timestamp", func() {
	It("should format in UTC", func() {
		nairobi := time.FixedZone("EAT", 3*60*60)
		Expect(Timestamp(time.Date(2025, 1, 2, 6, 4, 5, 0, nairobi))).To(Equal("20250102030405"))
	})
})

var _ = Describe("MaskPhone", func() {
	DescribeTable("keeps only the last three digits",
		func(input, expected string) {
			Expect(MaskPhone(input)).To(Equal(expected))
		},
		Entry("msisdn", "254733567890", "*********890"),
		Entry("short input", "123", "***"),
		Entry("empty input", "", "***"),
	)
})
