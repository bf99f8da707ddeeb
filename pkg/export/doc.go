// Package export writes entity values of one schema to an xlsx workbook and
// reads edited workbooks back into candidate values. Each leaf field of the
// definition gets one column named after its dotted path.
package export
