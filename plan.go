package main

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"tripcopilot/config"
	"tripcopilot/handlers"
	"tripcopilot/models"
	"tripcopilot/services"
)

func newPlanCmd(v *viper.Viper) *cobra.Command {
	var (
		req     models.PlanRequest
		def     = models.NewPlanRequest()
		pdfPath string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Plan a trip and print the result as JSON",
		Example: `  tripcopilot plan --origin CDG --cities Paris,Lyon --start 2025-06-01 --end 2025-06-04
  tripcopilot plan --cities Nice --start 2025-07-10 --end 2025-07-12 --budget 600 --pdf nice.pdf`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := handlers.ValidateRequest(&req); err != nil {
				return errors.Wrap(err, "invalid trip request")
			}
			req.ApplyDefaults()

			ctx := cmd.Context()
			a := newApp(ctx, config.FromViper(v), false)
			defer a.Close()

			plan, err := a.planner.Plan(ctx, &req)
			if err != nil {
				return err
			}
			res := handlers.PlanResult{
				Result: plan,
				Issues: a.critic.Validate(ctx, &req, plan),
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(res); err != nil {
				return errors.WithStack(err)
			}

			if pdfPath != "" {
				data, err := services.GeneratePlanPDF(services.PDFData{Request: &req, Plan: plan, Issues: res.Issues})
				if err != nil {
					return err
				}
				if err := os.WriteFile(pdfPath, data, 0o644); err != nil {
					return errors.Wrapf(err, "failed to write %s", pdfPath)
				}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.Origin, "origin", "CDG", "origin airport or station")
	f.StringSliceVar(&req.Cities, "cities", nil, "cities to visit, in order")
	f.StringVar(&req.StartDate, "start", "", "start date, YYYY-MM-DD")
	f.StringVar(&req.EndDate, "end", "", "end date, YYYY-MM-DD")
	f.IntVar(&req.BudgetEUR, "budget", def.BudgetEUR, "total budget in EUR")
	f.IntVar(&req.PartySize, "party", def.PartySize, "number of travellers")
	f.StringVar(&req.Pace, "pace", def.Pace, "slow, medium or fast")
	f.StringSliceVar(&req.Interests, "interests", def.Interests, "interests, e.g. food,art")
	f.Float64Var(&req.MaxWalkKMPerDay, "walk", def.MaxWalkKMPerDay, "max walking km per day")
	f.StringVar(&req.Language, "language", def.Language, "en or fr")
	f.StringVar(&pdfPath, "pdf", "", "also write the itinerary as a PDF to this path")
	_ = cmd.MarkFlagRequired("cities")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
