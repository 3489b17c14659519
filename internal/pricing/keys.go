package pricing

// Parameter keys read by the calculators.
const (
	ParamDiscountPercentage = "discountPercentage"
	ParamTaxPercentage      = "taxPercentage"

	ParamBaseValue          = "baseValue"
	ParamMultiplier         = "multiplier"
	ParamBaseAdjustment     = "baseAdjustment"
	ParamTypeFactorPrefix   = "typeFactor_"
	ParamComplexityLevel    = "complexityLevel"
	ParamMarketDemand       = "marketDemand"
	ParamCompetitionLevel   = "competitionLevel"
	ParamSeasonalFactor     = "seasonalFactor"
	ParamRegion             = "region"
	ParamEnableOptimization = "enableOptimization"

	ParamBaselineMultiplier    = "baselineMultiplier"
	ParamAdjustmentFactor      = "adjustmentFactor"
	ParamModifierPrefix        = "modifier_"
	ParamPriceElasticity       = "priceElasticity"
	ParamMarketTrend           = "marketTrend"
	ParamCompetitorCount       = "competitorCount"
	ParamMarketShare           = "marketShare"
	ParamTargetPosition        = "targetPosition"
	ParamBrandStrength         = "brandStrength"
	ParamDifferentiation       = "differentiation"
	ParamValueScore            = "valueScore"
	ParamOptimizationPotential = "optimizationPotential"
	ParamCustomAdjustment      = "customAdjustment"
	ParamRoundingMode          = "roundingMode"

	ParamSecondaryMultiplier = "secondaryMultiplier"
	ParamUtilityFactor       = "utilityFactor"
)
